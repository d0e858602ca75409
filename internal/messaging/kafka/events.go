package kafka

// Topics для Kafka.
const (
	TopicOrderEvents = "orders.order.events"
)

// Типы событий жизненного цикла заказа, публикуемых в TopicOrderEvents.
const (
	EventTypeOrderCreated         = "order.created"
	EventTypeOrderStatusChanged   = "order.status_changed"
	EventTypeOrderShippingUpdated = "order.shipping_updated"
	EventTypeOrderDeleted         = "order.deleted"
)
