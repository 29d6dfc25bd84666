package oracle

import "context"

// Mock is a test double for Client. It records prompts-by-method and
// returns whatever it was configured with.
type Mock struct {
	Analysis  *DreamAnalysis
	Tags      []string
	Refined   *Refinement
	ImageURL  string
	Flagged   bool
	Err       error
	RefineErr error
	ImageErr  error
	Calls     []string
}

func (m *Mock) AnalyzeDream(ctx context.Context, description string) (*DreamAnalysis, error) {
	m.Calls = append(m.Calls, "analyze")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Analysis, nil
}

func (m *Mock) TagMoment(ctx context.Context, caption, mediaType string) ([]string, error) {
	m.Calls = append(m.Calls, "tag")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tags, nil
}

func (m *Mock) RefineResonance(ctx context.Context, in RefineInput) (*Refinement, error) {
	m.Calls = append(m.Calls, "refine")
	if m.RefineErr != nil {
		return nil, m.RefineErr
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Refined, nil
}

func (m *Mock) GenerateImage(ctx context.Context, prompt string) (string, error) {
	m.Calls = append(m.Calls, "image")
	if m.ImageErr != nil {
		return "", m.ImageErr
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.ImageURL, nil
}

func (m *Mock) Moderate(ctx context.Context, text string) (bool, error) {
	m.Calls = append(m.Calls, "moderate")
	if m.Err != nil {
		return false, m.Err
	}
	return m.Flagged, nil
}
