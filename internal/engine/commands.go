package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/ledtube-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
)

// Controller is the engine surface driven by remote commands.
type Controller interface {
	StartDiscovery(ctx context.Context) error
	StopDiscovery()
	StartStreaming(ctx context.Context) error
	StopStreaming()
	SetShow(kind lightshow.Kind, params lightshow.Params) (Session, error)
}

// ShowCommand is the payload of the "show" command.
type ShowCommand struct {
	Show   string           `json:"show"`
	Params lightshow.Params `json:"params"`
}

// Command names under ledtube/command/.
const (
	CommandDiscoveryStart = "discovery/start"
	CommandDiscoveryStop  = "discovery/stop"
	CommandStreamingStart = "streaming/start"
	CommandStreamingStop  = "streaming/stop"
	CommandShow           = "show"
)

const commandTimeout = 5 * time.Second

// CommandHandler maps MQTT command messages onto a Controller.
type CommandHandler struct {
	ctl    Controller
	logger Logger
}

// NewCommandHandler creates a handler for ctl.
func NewCommandHandler(ctl Controller, logger Logger) *CommandHandler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandHandler{ctl: ctl, logger: logger}
}

// Handle executes one command message. Its signature matches
// mqtt.MessageHandler, so it can be passed to Subscribe directly.
func (h *CommandHandler) Handle(topic string, payload []byte) error {
	name, ok := mqtt.Topics{}.CommandName(topic)
	if !ok {
		return fmt.Errorf("%w: topic %q", ErrUnknownCommand, topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	h.logger.Debug("command received", "command", name)

	switch name {
	case CommandDiscoveryStart:
		return h.ctl.StartDiscovery(ctx)
	case CommandDiscoveryStop:
		h.ctl.StopDiscovery()
		return nil
	case CommandStreamingStart:
		return h.ctl.StartStreaming(ctx)
	case CommandStreamingStop:
		h.ctl.StopStreaming()
		return nil
	case CommandShow:
		var cmd ShowCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("decoding show command: %w", err)
		}
		kind, err := lightshow.ParseKind(cmd.Show)
		if err != nil {
			return err
		}
		_, err = h.ctl.SetShow(kind, cmd.Params)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}
