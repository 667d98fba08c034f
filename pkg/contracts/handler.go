package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// WebhookHandler serves provider callbacks that must be verified against the
// raw request body.
type WebhookHandler interface {
	RegisterWebhook(*httprouter.Router)
	SignatureHeader() string
}
