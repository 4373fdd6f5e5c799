// redact маскирует чувствительные данные для логов: push-токены устройств.
// Префикс токена сохраняется, чтобы по логам можно было сопоставить устройство.
package redact

// tokenPrefix: сколько символов токена остаётся видимым.
const tokenPrefix = 6

// Token маскирует push-токен устройства.
//
// Правила:
//   - пустая строка: "";
//   - токен не длиннее 2*tokenPrefix: "[REDACTED_TOKEN]";
//   - иначе первые tokenPrefix символов + "***".
//
// Примеры:
//
//	""                          -> ""
//	"short"                     -> "[REDACTED_TOKEN]"
//	"dGVzdC10b2tlbi0xMjM0NTY3"  -> "dGVzdC***"
func Token(s string) string {
	if s == "" {
		return ""
	}

	if len(s) <= 2*tokenPrefix {
		return "[REDACTED_TOKEN]"
	}

	return s[:tokenPrefix] + "***"
}

// Tokens маскирует каждый токен списка.
func Tokens(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}

	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = Token(s)
	}

	return out
}
