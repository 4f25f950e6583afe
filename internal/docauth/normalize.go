package docauth

// Canonical, presentation-safe message keys. Raw vendor text and vendor
// error codes never leave this package.
const (
	MsgNetworkError = "doc_auth.errors.general.network_error"
	MsgFallback     = "doc_auth.errors.general.fallback"

	MsgImageLoadTop    = "doc_auth.errors.http.image_load.top_msg"
	MsgImageLoadField  = "doc_auth.errors.http.image_load.failed_short"
	MsgPixelDepthTop   = "doc_auth.errors.http.pixel_depth.top_msg"
	MsgPixelDepthField = "doc_auth.errors.http.pixel_depth.failed_short"
	MsgImageSizeTop    = "doc_auth.errors.http.image_size.top_msg"
	MsgImageSizeField  = "doc_auth.errors.http.image_size.failed_short"
)

// codeMessages maps known vendor error codes to canonical keys.
var codeMessages = map[string]string{
	"barcode_content_check":    "doc_auth.errors.alerts.barcode_content_check",
	"barcode_read_check":       "doc_auth.errors.alerts.barcode_read_check",
	"birth_date_checks":        "doc_auth.errors.alerts.birth_date_checks",
	"control_number_check":     "doc_auth.errors.alerts.control_number_check",
	"doc_crosscheck":           "doc_auth.errors.alerts.doc_crosscheck",
	"doc_number_checks":        "doc_auth.errors.alerts.doc_number_checks",
	"expiration_checks":        "doc_auth.errors.alerts.expiration_checks",
	"full_name_check":          "doc_auth.errors.alerts.full_name_check",
	"general_error":            MsgFallback,
	"id_not_recognized":        "doc_auth.errors.alerts.id_not_recognized",
	"id_not_verified":          "doc_auth.errors.alerts.id_not_verified",
	"issue_date_checks":        "doc_auth.errors.alerts.issue_date_checks",
	"ref_control_number_check": "doc_auth.errors.alerts.ref_control_number_check",
	"selfie_failure":           "doc_auth.errors.alerts.selfie_failure",
	"sex_check":                "doc_auth.errors.alerts.sex_check",
	"visible_color_check":      "doc_auth.errors.alerts.visible_color_check",
	"visible_photo_check":      "doc_auth.errors.alerts.visible_photo_check",
}

// canonical reports whether a string is already a canonical message key, so
// normalizing an already-normalized result changes nothing.
var canonical = func() map[string]bool {
	set := map[string]bool{
		MsgNetworkError: true,
		MsgFallback:     true,
	}
	for _, msg := range codeMessages {
		set[msg] = true
	}
	for _, sm := range statusMessages {
		set[sm.top] = true
		set[sm.field] = true
	}
	return set
}()

type statusMessage struct {
	top   string
	field string
}

// statusMessages covers the vendor's coded HTTP rejections: 438 image failed
// to load, 439 unsupported pixel depth, 440 image dimensions out of range.
var statusMessages = map[int]statusMessage{
	438: {top: MsgImageLoadTop, field: MsgImageLoadField},
	439: {top: MsgPixelDepthTop, field: MsgPixelDepthField},
	440: {top: MsgImageSizeTop, field: MsgImageSizeField},
}

// Normalize converts a raw vendor outcome into canonical field errors. It is
// total: any response and any unknown code produce a usable Result. warn is
// invoked once per unrecognized code; nil is allowed.
func Normalize(resp Response, err error, warn func(code string)) Result {
	if err != nil {
		return Result{FieldErrors: map[Field][]string{
			FieldGeneral: {MsgNetworkError},
		}}
	}
	if resp.Success {
		return Result{Success: true}
	}

	if sm, ok := statusMessages[resp.HTTPStatus]; ok {
		out := map[Field][]string{FieldGeneral: {sm.top}}
		for field := range resp.Errors {
			if field != FieldGeneral {
				out[field] = []string{sm.field}
			}
		}
		return Result{FieldErrors: out}
	}

	out := make(map[Field][]string)
	for field, codes := range resp.Errors {
		out[field] = normalizeCodes(codes, warn)
	}
	if len(out) == 0 {
		// Unsuccessful with nothing to say, including unmapped HTTP
		// statuses; give the user something actionable anyway.
		out[FieldGeneral] = []string{MsgFallback}
	}
	return Result{FieldErrors: out}
}

func normalizeCodes(codes []string, warn func(code string)) []string {
	msgs := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		msg, ok := codeMessages[code]
		if !ok {
			if canonical[code] {
				msg = code
			} else {
				if warn != nil {
					warn(code)
				}
				msg = MsgFallback
			}
		}
		if !seen[msg] {
			seen[msg] = true
			msgs = append(msgs, msg)
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, MsgFallback)
	}
	return msgs
}
