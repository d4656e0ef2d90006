package models

// FormMode distinguishes the two presentation modes of the server-driven modal.
type FormMode string

const (
	FormModeInput FormMode = "input"
	FormModeView  FormMode = "view"
)

// FormField is one structured-input field in an input-mode form. Values are
// kept as strings while the form is being edited; they are parsed to integers
// on confirmation.
type FormField struct {
	DisplayLabel string `json:"displayLabel"`
	Value        string `json:"value"`
	MinValue     int    `json:"minValue"`
	MaxValue     int    `json:"maxValue"`
	Editable     bool   `json:"editable"`
}

// FormData is a server-initiated structured-input request. Point carries the
// total build-point budget shared across the editable fields.
type FormData struct {
	Mode  FormMode             `json:"inputMode"`
	Title string               `json:"title"`
	Point FormField            `json:"point"`
	Items map[string]FormField `json:"items"`
}

// DeepCopy returns a copy that shares no maps with the receiver.
func (f *FormData) DeepCopy() *FormData {
	out := *f
	if f.Items != nil {
		out.Items = make(map[string]FormField, len(f.Items))
		for k, v := range f.Items {
			out.Items[k] = v
		}
	}
	return &out
}

// PendingForm is the only synchronizer state that survives restarts: an
// in-progress input form, its availability flag, and the session it belongs to.
type PendingForm struct {
	SessionID string   `json:"sessionId"`
	Form      FormData `json:"form"`
	Available bool     `json:"available"`
}
