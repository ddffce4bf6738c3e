package shared

// Serial prefixes for generated document numbers
const (
	SerialPrefixInbound  = "IN"
	SerialPrefixOutbound = "OUT"
	SerialPrefixExchange = "EX"
	SerialPrefixOrder    = "SO"
	SerialPrefixPurchase = "PO"
)

// SerialGenerator produces unique, roughly time-ordered document serials
type SerialGenerator interface {
	Next(prefix string) string
}
