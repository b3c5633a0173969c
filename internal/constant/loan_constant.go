package constant

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleAgent = "agent"

	// Upload limits
	MaxDocumentsPerSession = 20

	// Session history returned by the history endpoint
	DefaultHistoryTurns = 50
)

// AllowedDocumentExtensions are the upload formats the document-analysis
// service accepts.
var AllowedDocumentExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".bmp"}
