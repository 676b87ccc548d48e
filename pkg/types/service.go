package types

// Service identifies one of the metered product surfaces. Every allowance
// grant and debit resolves through this closed set; unknown product names
// must be handled by the caller's default case, never by string matching at
// the call site.
type Service string

const (
	ServiceTTS          Service = "tts"
	ServiceVoiceClone   Service = "voice_clone"
	ServiceTalkingImage Service = "talking_image"
)

var allServices = []Service{ServiceTTS, ServiceVoiceClone, ServiceTalkingImage}

// ParseService maps a product name to a Service. The bool result is false
// for anything outside the closed set.
func ParseService(s string) (Service, bool) {
	switch Service(s) {
	case ServiceTTS, ServiceVoiceClone, ServiceTalkingImage:
		return Service(s), true
	}
	return "", false
}

func (s Service) Valid() bool {
	_, ok := ParseService(string(s))
	return ok
}

// AllowanceColumn returns the ledger column holding this service's allowance.
// TTS and voice cloning are metered in characters, talking image in seconds.
func (s Service) AllowanceColumn() string {
	switch s {
	case ServiceVoiceClone:
		return "clone_characters"
	case ServiceTalkingImage:
		return "talking_image_seconds"
	default:
		return "tts_characters"
	}
}

func Services() []Service {
	return allServices
}
