package dispatch

// Payload keys.
const (
	DataKey   = "data"
	ResultKey = "result"
)

// Result is the envelope every mutation handler returns. Success is always
// present; Data is set on success and Errors on failure.
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Errors  []string               `json:"errors,omitempty"`
}

// Succeeded wraps a payload already annotated with its result.
func Succeeded(data map[string]interface{}) Result {
	return Result{Success: true, Data: data}
}

// Failed builds an error envelope.
func Failed(msgs ...string) Result {
	return Result{Success: false, Errors: msgs}
}

// Event is published for every handled mutation.
type Event struct {
	RequestID string `json:"request_id"`
	Mutation  string `json:"mutation"`
	Command   string `json:"command"`
	Verb      Verb   `json:"verb"`
	Result    Result `json:"result"`
}
