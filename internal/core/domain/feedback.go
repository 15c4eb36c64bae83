package domain

// Feedback is a user's rating of one answer.
type Feedback struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// Validate checks the rating is within 1..5 and the answer is identified.
func (f Feedback) Validate() error {
	if f.SessionID == "" || f.Question == "" {
		return ErrInvalidInput
	}
	if f.Rating < 1 || f.Rating > 5 {
		return ErrInvalidInput
	}
	return nil
}
