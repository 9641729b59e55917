package domain

type Outcome struct {
	Account string `json:"account" yaml:"account"`
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
}

func NewOutcome(identifier string, success bool, message string) Outcome {
	return Outcome{
		Account: MaskIdentifier(identifier),
		Success: success,
		Message: message,
	}
}

// MaskIdentifier keeps the first 3 and last 4 runes visible.
func MaskIdentifier(id string) string {
	runes := []rune(id)
	switch {
	case len(runes) == 0:
		return "***"
	case len(runes) <= 7:
		return string(runes[:1]) + "***"
	default:
		return string(runes[:3]) + "***" + string(runes[len(runes)-4:])
	}
}
