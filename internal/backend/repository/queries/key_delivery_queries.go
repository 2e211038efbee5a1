package queries

const (
	// INSERT is an upsert in CQL, which is exactly the per-(task, aggregator)
	// overwrite semantics key delivery wants.
	UpsertKeyDeliveryQuery = `
		INSERT INTO healchain.key_delivery_data (
			task_id, aggregator_address, ciphertext, delivered_at
		) VALUES (?, ?, ?, ?)`

	GetKeyDeliveryQuery = `
		SELECT task_id, aggregator_address, ciphertext, delivered_at
		FROM healchain.key_delivery_data
		WHERE task_id = ? AND aggregator_address = ?`
)
