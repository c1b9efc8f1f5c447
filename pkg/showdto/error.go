package showdto

const (
	CodeGameOver        = "game_over"
	CodeNoMove          = "no_move"
	CodeIllegalScripted = "illegal_scripted_move"
	CodeCommentary      = "commentary_failed"
	CodeSessionNotFound = "session_not_found"
	CodeInternal        = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "showmatch error"
}
