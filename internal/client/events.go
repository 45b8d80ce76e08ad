package client

// Event payloads as they arrive on the wire.

type ProgressEvent struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Phase    string  `json:"phase"`
}

type CompleteEvent struct {
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	OutputRef string  `json:"outputReference"`
}

type ErrorEvent struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Callbacks are invoked from the client's stream goroutine. A nil callback
// is simply skipped. After Destroy or a terminal event no callback fires
// again.
type Callbacks struct {
	OnOpen     func(jobID string)
	OnProgress func(ProgressEvent)
	OnComplete func(CompleteEvent)
	// OnError is a structured job failure from the server, not a transport
	// problem. It is terminal and never retried.
	OnError func(ErrorEvent)
	// OnConnectionLost fires once when transport retries are exhausted.
	OnConnectionLost func(err error)
}
