package handler

// snsEnvelope is the outer SNS delivery wrapper. Message carries the actual
// event as a nested JSON document.
type snsEnvelope struct {
	Message      string `json:"Message"`
	SubscribeURL string `json:"SubscribeURL"`
}

type objectCreatedMessage struct {
	DetailType string `json:"detail-type"`
	Detail     struct {
		Bucket struct {
			Name string `json:"name" validate:"required"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key" validate:"required"`
		} `json:"object"`
	} `json:"detail"`
}

type jobStatusResponse struct {
	Key        string `json:"key"`
	State      string `json:"state"`
	FrameCount int    `json:"frame_count"`
	Error      string `json:"error,omitempty"`
}
