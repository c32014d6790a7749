package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nearhire/internal/call"
	"nearhire/pkg/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const signalChannelPrefix = "call:signal:"

func userChannel(userID string) string {
	return signalChannelPrefix + userID
}

// wireSignal is the JSON shape of one call-control message on the wire.
type wireSignal struct {
	Kind      string    `json:"kind"`
	CallID    string    `json:"call_id"`
	RoomID    string    `json:"room_id,omitempty"`
	FromID    string    `json:"from_id"`
	FromName  string    `json:"from_name,omitempty"`
	ToID      string    `json:"to_id"`
	CallType  string    `json:"call_type,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func encodeSignal(sig call.Signal) ([]byte, error) {
	return json.Marshal(wireSignal{
		Kind:      string(sig.Kind),
		CallID:    sig.CallID.String(),
		RoomID:    sig.RoomID,
		FromID:    sig.From.String(),
		FromName:  sig.FromName,
		ToID:      sig.To.String(),
		CallType:  string(sig.CallType),
		Reason:    sig.Reason,
		Timestamp: time.Now(),
	})
}

func decodeSignal(data []byte) (call.Signal, error) {
	var w wireSignal
	if err := json.Unmarshal(data, &w); err != nil {
		return call.Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	callID, err := uuid.Parse(w.CallID)
	if err != nil {
		return call.Signal{}, fmt.Errorf("decode signal: call_id: %w", err)
	}
	from, err := uuid.Parse(w.FromID)
	if err != nil {
		return call.Signal{}, fmt.Errorf("decode signal: from_id: %w", err)
	}
	to, err := uuid.Parse(w.ToID)
	if err != nil {
		return call.Signal{}, fmt.Errorf("decode signal: to_id: %w", err)
	}
	return call.Signal{
		Kind:     call.SignalKind(w.Kind),
		CallID:   callID,
		RoomID:   w.RoomID,
		From:     from,
		FromName: w.FromName,
		To:       to,
		CallType: call.Type(w.CallType),
		Reason:   w.Reason,
	}, nil
}

// Publisher sends call-control signals over per-user Redis channels. It is
// the call engine's Signaler.
type Publisher struct {
	client *goredis.Client
}

func NewPublisher(client *goredis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Send(ctx context.Context, sig call.Signal) error {
	data, err := encodeSignal(sig)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, userChannel(sig.To.String()), data).Err()
}

// Dispatcher consumes decoded inbound signals; the call registry implements
// it.
type Dispatcher interface {
	Dispatch(ctx context.Context, sig call.Signal) error
}

// Subscriber listens on all per-user signal channels and feeds each message
// to the dispatcher in arrival order.
type Subscriber struct {
	client     *goredis.Client
	dispatcher Dispatcher
	log        *logger.Logger

	pubsub *goredis.PubSub
	cancel context.CancelFunc
}

func NewSubscriber(client *goredis.Client, dispatcher Dispatcher, log *logger.Logger) *Subscriber {
	if log == nil {
		log = logger.NewNop()
	}
	return &Subscriber{client: client, dispatcher: dispatcher, log: log}
}

func (s *Subscriber) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.pubsub = s.client.PSubscribe(ctx, signalChannelPrefix+"*")
	go s.listen(ctx)
	return nil
}

func (s *Subscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.pubsub != nil {
		_ = s.pubsub.Close()
	}
}

func (s *Subscriber) listen(ctx context.Context) {
	for msg := range s.pubsub.Channel() {
		sig, err := decodeSignal([]byte(msg.Payload))
		if err != nil {
			s.log.Errorf("dropping malformed signal on %s: %v", msg.Channel, err)
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, sig); err != nil {
			s.log.Errorf("dispatch %s signal for call %s: %v", sig.Kind, sig.CallID, err)
		}
	}
}
