package question

import "github.com/goccy/go-json"

// Answer is a validated answer, stored as a JSON payload.
type Answer interface {
	Payload() ([]byte, error)
}

type TextAnswer struct {
	Text string `json:"text"`
}

func (a TextAnswer) Payload() ([]byte, error) {
	return json.Marshal(a)
}

type ChoiceAnswer struct {
	Selected []int `json:"selected"`
}

func (a ChoiceAnswer) Payload() ([]byte, error) {
	return json.Marshal(a)
}

// DateTimeAnswer holds the value in the storable format of its question's kind.
type DateTimeAnswer struct {
	Timestamp string `json:"timestamp"`
}

func (a DateTimeAnswer) Payload() ([]byte, error) {
	return json.Marshal(a)
}

func decode[T any](payload []byte) (v T, ok bool) {
	if len(payload) == 0 {
		return v, false
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, false
	}
	return v, true
}
