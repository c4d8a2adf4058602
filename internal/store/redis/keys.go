package redis

const (
	// KeyPrefixStock is the prefix for per-target state keys.
	// Values written by earlier deployments live under the same prefix.
	KeyPrefixStock = "stock:"
)

// StockKey returns the Redis key holding a target's state
func StockKey(targetID string) string {
	return KeyPrefixStock + targetID
}
