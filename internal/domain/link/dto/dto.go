package dto

// ConnectRequest is the body of POST /api/telegram/connect
type ConnectRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// ConnectResponse is returned once a code was sent
type ConnectResponse struct {
	Message      string `json:"message"`
	RequiresCode bool   `json:"requires_code"`
}

// VerifyRequest is the body of POST /api/telegram/verify
type VerifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	Password    string `json:"password,omitempty"`
}

// VerifyResponse is returned by POST /api/telegram/verify
type VerifyResponse struct {
	Message          string `json:"message"`
	RequiresPassword bool   `json:"requires_password,omitempty"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}
