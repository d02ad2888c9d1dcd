package kafka

import "fmt"

// TopicPrefix is prepended to every storefront topic.
const TopicPrefix = "storefront"

// Topic returns the fully qualified topic for a domain action, for example
// "storefront.cart.updated".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
