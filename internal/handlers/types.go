package handlers

import (
	"mime/multipart"
	"time"
)

// maxCodeLength bounds codes accepted in paths.
const maxCodeLength = 32

// CodeRequest addresses a short link from the admin API.
type CodeRequest struct {
	Code string `doc:"The short code" example:"Ab3kP9" maxLength:"32" path:"code"`
}

// PublicCodeRequest addresses a short link or availability code from an SMS
// link. It carries no schema constraints so malformed codes reach the handler
// and get a branded page.
type PublicCodeRequest struct {
	Code string `doc:"The short code" example:"Ab3kP9" path:"code"`
}

// PageResponse is a redirect or a branded HTML page.
type PageResponse struct {
	Status       int
	Location     string `header:"Location"`
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// LinkView is the admin representation of a short link.
type LinkView struct {
	Code      string    `json:"code"               example:"Ab3kP9"`
	ShortURL  string    `json:"shortUrl"           example:"http://localhost:8888/Ab3kP9"`
	Target    string    `json:"target"             example:"https://checkout.stripe.com/c/pay/cs_test"`
	EntityID  string    `json:"associatedEntityId,omitempty" example:"recA1b2C3d4E5f6G7"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateShortLinkRequest is the request body for creating a short link.
type CreateShortLinkRequest struct {
	Body struct {
		Target   string `doc:"Absolute http(s) URL or a path starting with /" example:"https://example.com/proposal/42" json:"target"             minLength:"1"`
		EntityID string `doc:"Record the link belongs to, for audit only"      example:"recA1b2C3d4E5f6G7"              json:"entityId,omitempty"`
	}
}

// CreateShortLinkResponse is the response for a created short link.
type CreateShortLinkResponse struct {
	Location string `header:"Location"`
	Body     LinkView
}

// StatsRequest optionally bounds the listed links.
type StatsRequest struct {
	Limit int `doc:"Maximum number of links to list, newest first; 0 lists all" minimum:"0" query:"limit"`
}

// StatsResponse reports the size of the link table.
type StatsResponse struct {
	Body struct {
		TotalLinks int        `json:"totalLinks"`
		Links      []LinkView `json:"links"`
	}
}

// QRCodeResponse is a PNG image.
type QRCodeResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// DispatchChecksRequest asks technicians whether they can take a job.
type DispatchChecksRequest struct {
	Body struct {
		EntityID     string   `doc:"Job record" example:"recA1b2C3d4E5f6G7" json:"entityId"     minLength:"1"`
		ResponderIDs []string `doc:"Technician records to ask" json:"responderIds" minItems:"1"`
	}
}

// DispatchResultView is the outcome for one technician.
type DispatchResultView struct {
	ResponderID string `json:"responderId"`
	Code        string `json:"code,omitempty"`
	Sent        bool   `json:"sent"`
	Error       string `json:"error,omitempty"`
}

// DispatchChecksResponse lists per-technician outcomes.
type DispatchChecksResponse struct {
	Body struct {
		EntityID string               `json:"entityId"`
		Results  []DispatchResultView `json:"results"`
	}
}

// SMSWebhookRequest is an inbound message callback.
type SMSWebhookRequest struct {
	Signature string `header:"X-Twilio-Signature"`
	RawBody   []byte `contentType:"application/x-www-form-urlencoded"`
}

// SMSWebhookResponse is a TwiML document.
type SMSWebhookResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// CheckoutRequest creates a payment link for a job.
type CheckoutRequest struct {
	Body struct {
		EntityID    string `doc:"Job record"                      example:"recA1b2C3d4E5f6G7"     json:"entityId"    minLength:"1"`
		AmountCents int64  `doc:"Amount to charge in cents"       example:"25000"                 json:"amountCents" minimum:"1"`
		Description string `doc:"Line item shown at checkout"     example:"Camera installation"   json:"description" minLength:"1"`
		Currency    string `doc:"ISO currency code, default usd"  example:"usd"                   json:"currency,omitempty"`
	}
}

// CheckoutResponse returns the checkout session and its short link.
type CheckoutResponse struct {
	Body struct {
		SessionID   string `json:"sessionId"`
		CheckoutURL string `json:"checkoutUrl"`
		ShortURL    string `json:"shortUrl"`
		Code        string `json:"code"`
	}
}

// UploadAssetRequest is a multipart upload with a "file" part and an
// optional "folder" field.
type UploadAssetRequest struct {
	RawBody multipart.Form
}

// UploadAssetResponse describes the stored asset.
type UploadAssetResponse struct {
	Body struct {
		PublicID  string `json:"publicId"`
		SecureURL string `json:"secureUrl"`
	}
}

// CreateSessionRequest logs an operator in.
type CreateSessionRequest struct {
	Body struct {
		Password string `json:"password" minLength:"1"`
	}
}

// CreateSessionResponse carries the bearer token.
type CreateSessionResponse struct {
	Body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
}
