package models

// ComparisonCandidate is a completed job eligible for side-by-side
// comparison, as returned by GET /tasks/comparison/available.
type ComparisonCandidate struct {
	TaskID    string `json:"task_id"`
	Name      string `json:"name"`
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
}

// ComparisonRow is one job's aggregate metrics inside a comparison response.
type ComparisonRow struct {
	TaskID  string         `json:"task_id"`
	Name    string         `json:"name"`
	Model   string         `json:"model"`
	Metrics []MetricRecord `json:"metrics"`
}

// ComparisonSelection is the ephemeral set of job ids picked for comparison.
// It lives only in memory and is discarded when the view goes away.
type ComparisonSelection struct {
	ids   []string
	index map[string]bool
}

// NewComparisonSelection returns an empty selection.
func NewComparisonSelection() *ComparisonSelection {
	return &ComparisonSelection{index: make(map[string]bool)}
}

// Add inserts a job id, ignoring duplicates. It reports whether the id was
// newly added.
func (s *ComparisonSelection) Add(id string) bool {
	if s.index[id] {
		return false
	}
	s.index[id] = true
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes a job id from the selection.
func (s *ComparisonSelection) Remove(id string) {
	if !s.index[id] {
		return
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
}

// Contains reports whether the id is selected.
func (s *ComparisonSelection) Contains(id string) bool {
	return s.index[id]
}

// IDs returns the selected job ids in insertion order.
func (s *ComparisonSelection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected jobs.
func (s *ComparisonSelection) Len() int {
	return len(s.ids)
}
