package events

// Topic constants for domain events emitted by the order service.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderUpdated       = "order.updated"
	TopicOrderPaid          = "order.paid"
	TopicOrderStatusChanged = "order.status_changed"
)

// DefaultTopics returns every topic the service emits.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderUpdated,
		TopicOrderPaid,
		TopicOrderStatusChanged,
	}
}

// Repriced reports whether events on topic change the persisted price.
func Repriced(topic string) bool {
	return topic == TopicOrderCreated || topic == TopicOrderUpdated
}
