package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/membership-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const (
	partitionReadAttempts = 3
	partitionReadBackoff  = time.Second
)

// EnsureTopic dials the broker and creates topic when it cannot be found
func EnsureTopic(cfg *config.KafkaConfig, topic string, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka for topic %s: %w", topic, err)
	}
	defer conn.Close()

	return createKafkaTopicIfNotExists(conn, topicConfig(topic, cfg.NumPartitions, cfg.ReplicationFactor), log)
}

func topicConfig(topic string, numPartitions, replicationFactor int) kafka.TopicConfig {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	return kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
}

// createKafkaTopicIfNotExists creates the topic if no partitions can be read, retrying partition reads first
func createKafkaTopicIfNotExists(conn *kafka.Conn, tc kafka.TopicConfig, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for i := 0; i < partitionReadAttempts; i++ {
		partitions, err = conn.ReadPartitions(tc.Topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "attempt", i+1, "error", err)
		time.Sleep(partitionReadBackoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "partitions", len(partitions))
		return nil
	}

	log.Info("Kafka topic does not exist or is not accessible, creating it",
		"partitions", tc.NumPartitions,
		"replication_factor", tc.ReplicationFactor,
		"last_read_error", err,
	)
	if err := conn.CreateTopics(tc); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", tc.Topic, err)
	}
	log.Info("Created Kafka topic")
	return nil
}
