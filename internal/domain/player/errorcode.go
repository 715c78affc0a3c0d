package player

// ErrorCode is the stable playback error taxonomy.
type ErrorCode int

// Error codes
const (
	ErrNone            ErrorCode = 0
	ErrOnlyWifiNetwork ErrorCode = 1
	ErrPlayer          ErrorCode = 2
	ErrNetwork         ErrorCode = 3
	ErrFileNotFound    ErrorCode = 4
	ErrDataLoadFailed  ErrorCode = 5
	ErrGetURLFailed    ErrorCode = 6
	ErrOutOfMemory     ErrorCode = 7
	ErrUnknown         ErrorCode = 8
)

var errorMessages = map[ErrorCode]string{
	ErrNone:            "No error",
	ErrOnlyWifiNetwork: "Playback is restricted to Wi-Fi networks",
	ErrPlayer:          "Player error",
	ErrNetwork:         "Network error",
	ErrFileNotFound:    "File not found",
	ErrDataLoadFailed:  "Failed to load data",
	ErrGetURLFailed:    "Failed to get the track URL",
	ErrOutOfMemory:     "Out of memory",
	ErrUnknown:         "Unknown error",
}

// ErrorCodeFromInt maps a raw code to the taxonomy. Unknown codes map to ErrUnknown.
func ErrorCodeFromInt(n int) ErrorCode {
	code := ErrorCode(n)
	if _, ok := errorMessages[code]; !ok {
		return ErrUnknown
	}
	return code
}

// Message returns the displayable message for the code.
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return errorMessages[ErrUnknown]
}

func (c ErrorCode) String() string {
	return c.Message()
}
