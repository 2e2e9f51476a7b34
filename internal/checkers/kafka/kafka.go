package kafkacheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"stream-quality/internal/core/health"
)

const TypeKafka = "kafka"

// Checker dials the bootstrap servers in order and asks the first one that
// answers for the cluster's broker list.
type Checker struct {
	NameValue string
	Brokers   []string
	Timeout   time.Duration
}

func (c *Checker) Name() string {
	return c.NameValue
}

func (c *Checker) Check(ctx context.Context) health.Result {
	res := health.Result{Name: c.NameValue, Type: TypeKafka, Timestamp: time.Now()}
	if len(c.Brokers) == 0 {
		res.Status = health.StatusError
		res.Message = "Error checking service: no bootstrap servers configured"
		return res
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var lastErr error
	for _, addr := range c.Brokers {
		brokers, err := listBrokers(ctx, addr)
		if err != nil {
			lastErr = err
			continue
		}
		res.Status = health.StatusHealthy
		res.Message = fmt.Sprintf("Kafka service is reachable at %s", addr)
		res.Metrics = map[string]any{"brokers": len(brokers)}
		return res
	}
	res.Status = health.StatusUnhealthy
	res.Message = fmt.Sprintf("Kafka unreachable at %s: %v", strings.Join(c.Brokers, ","), lastErr)
	return res
}

func listBrokers(ctx context.Context, addr string) ([]kafka.Broker, error) {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn.Brokers()
}
