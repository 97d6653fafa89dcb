package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/hpelec/internal/ports"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

type Config struct {
	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS           byte
	RetainResults bool

	Username string
	Password string
}

// Controller publishes generation results and accepts generate commands on
// <base>/generate. It implements profile.Notifier.
type Controller struct {
	cfg Config
	log *slog.Logger

	mu      sync.RWMutex
	client  mqtt.Client
	svc     ports.ProfileService
	closing bool // set once Run stops accepting commands
	wg      sync.WaitGroup
}

func New(cfg Config, log *slog.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "hpelec"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "hpelec-" + strings.ReplaceAll(strings.Trim(cfg.BaseTopic, "/"), "/", "-")
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{cfg: cfg, log: log}, nil
}

// Run connects to the broker and serves generate commands against svc until
// ctx is done.
func (c *Controller) Run(ctx context.Context, svc ports.ProfileService) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		token := cl.Subscribe(c.topic("generate"), c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			c.onMessage(ctx, msg)
		})
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Error("mqtt subscribe failed", slog.Any("error", err))
		}
	}

	client := mqtt.NewClient(opts)
	c.mu.Lock()
	c.client = client
	c.svc = svc
	c.mu.Unlock()

	tok := client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	<-ctx.Done()
	c.drain()
	client.Disconnect(250)
	return ctx.Err()
}

// drain stops dispatching commands and waits for the running ones.
func (c *Controller) drain() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.wg.Wait()
}

type stateDTO struct {
	RunID      string  `json:"run_id"`
	State      string  `json:"state"`
	Path       string  `json:"path,omitempty"`
	Pumas      int     `json:"pumas"`
	Steps      int     `json:"steps"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

type runDTO struct {
	RunID         string   `json:"run_id"`
	Year          int      `json:"year"`
	BuildingClass string   `json:"building_class"`
	HPModel       string   `json:"hp_model"`
	Written       []string `json:"written"`
	Failed        []string `json:"failed"`
	Skipped       []string `json:"skipped"`
}

// Command payload format, omitted fields use the service defaults.
type generateReq struct {
	Year          *int     `json:"year"`
	States        []string `json:"states"`
	BuildingClass *string  `json:"building_class"`
	HPModel       *string  `json:"hp_model"`
}

func (c *Controller) StateDone(_ context.Context, runID string, res profile.StateResult) {
	dto := stateDTO{
		RunID:      runID,
		State:      res.State,
		Path:       res.Path,
		Pumas:      res.Pumas,
		Steps:      res.Steps,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
	}
	if res.Err != nil {
		dto.Error = res.Err.Error()
	}
	c.publish(c.topic("runs/"+runID+"/states/"+res.State), dto)
}

func (c *Controller) RunDone(_ context.Context, rep profile.Report) {
	dto := runDTO{
		RunID:         rep.RunID,
		Year:          rep.Year,
		BuildingClass: rep.Class.String(),
		HPModel:       rep.Model.String(),
		Written:       []string{},
		Failed:        []string{},
		Skipped:       []string{},
	}
	for _, res := range rep.Results {
		switch {
		case res.Skipped:
			dto.Skipped = append(dto.Skipped, res.State)
		case res.Err != nil:
			dto.Failed = append(dto.Failed, res.State)
		default:
			dto.Written = append(dto.Written, res.State)
		}
	}
	c.publish(c.topic("runs/"+rep.RunID+"/done"), dto)
}

func (c *Controller) publish(topic string, v any) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return
	}
	b, _ := json.Marshal(v)
	client.Publish(topic, c.cfg.QoS, c.cfg.RetainResults, b)
}

func (c *Controller) onMessage(ctx context.Context, msg mqtt.Message) {
	if msg.Topic() != c.topic("generate") {
		return
	}
	payload := append([]byte(nil), msg.Payload()...)

	// paho handlers must not block; a run can take minutes.
	c.mu.Lock()
	if c.closing || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.wg.Done()
		if err := c.handleGenerate(ctx, payload); err != nil {
			c.log.ErrorContext(ctx, "mqtt generate command failed", slog.Any("error", err))
		}
	}()
}

func (c *Controller) handleGenerate(ctx context.Context, payload []byte) error {
	c.mu.RLock()
	svc := c.svc
	c.mu.RUnlock()
	if svc == nil {
		return errors.New("mqtt: no profile service attached")
	}

	cmd, err := decodeStrict[generateReq](payload)
	if err != nil {
		return fmt.Errorf("decode generate command: %w", err)
	}
	req := svc.DefaultRequest()
	if cmd.Year != nil {
		req.Year = *cmd.Year
	}
	if len(cmd.States) > 0 {
		req.States = cmd.States
	}
	if cmd.BuildingClass != nil {
		req.Class = *cmd.BuildingClass
	}
	if cmd.HPModel != nil {
		req.Model = *cmd.HPModel
	}

	_, err = svc.Generate(ctx, req)
	return err
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeStrict[T any](b []byte) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}
