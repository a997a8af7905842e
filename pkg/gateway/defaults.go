package gateway

// DefaultSystemPrompt is the Ares persona used when no prompt is configured.
const DefaultSystemPrompt = "Ты - Ares, продвинутый AI помощник, созданный для облегчения жизни людей. " +
	"Когда тебя спрашивают о тебе, представляйся как Ares и объясняй, что ты создан для помощи в программировании, " +
	"анализе данных, работе с изображениями и документами. " +
	"Ты можешь писать код на любых языках программирования, анализировать изображения, видео и документы. " +
	"Когда пишешь код, используй markdown форматирование с тройными обратными кавычками и указывай язык программирования. " +
	"Отвечай на русском языке четко, понятно и дружелюбно."

const (
	DefaultRateLimitedMessage     = "Превышен лимит запросов, попробуйте позже."
	DefaultPaymentRequiredMessage = "Требуется оплата, пополните баланс."
	DefaultUpstreamMessage        = "Ошибка AI сервиса"
)

const (
	// DefaultMaxBodyBytes caps the inbound request body.
	DefaultMaxBodyBytes int64 = 8 << 20
	// DefaultMaxMessages caps the number of messages in one request.
	DefaultMaxMessages = 200
)

// ErrorMessages are the user-visible strings returned for upstream failures.
type ErrorMessages struct {
	RateLimited     string
	PaymentRequired string
	Upstream        string
}

func (m ErrorMessages) withDefaults() ErrorMessages {
	if m.RateLimited == "" {
		m.RateLimited = DefaultRateLimitedMessage
	}
	if m.PaymentRequired == "" {
		m.PaymentRequired = DefaultPaymentRequiredMessage
	}
	if m.Upstream == "" {
		m.Upstream = DefaultUpstreamMessage
	}
	return m
}
