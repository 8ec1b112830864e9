package dispatcher

import (
	"context"
	"io"
	"strings"
	"time"

	"teltonika-codec/internal/codec"
	"teltonika-codec/internal/observability"
	"teltonika-codec/internal/store"
)

/* =======================================================================
                        COMMAND DEFINITION
======================================================================= */

type Command struct {
	Name             string
	Text             string // Codec12 command text
	DailyLimit       int
	SessionLimit     int
	MinRetryInterval time.Duration
	// Needed reports whether the device still lacks what the command fetches.
	Needed func(ctx context.Context, d *Dispatcher, imei string) bool
}

func (d *Dispatcher) RegisterCommand(c Command) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	if _, ok := d.registry[c.Name]; !ok {
		d.order = append(d.order, c.Name)
	}
	d.registry[c.Name] = c
}

func (d *Dispatcher) getCmd(name string) (Command, bool) {
	d.cmdMu.RLock()
	defer d.cmdMu.RUnlock()
	c, ok := d.registry[name]
	return c, ok
}

// Commands lists registered command names in registration order.
func (d *Dispatcher) Commands() []string {
	d.cmdMu.RLock()
	defer d.cmdMu.RUnlock()
	return append([]string(nil), d.order...)
}

// RegisterDefaults registers getver and the two ICCID lookups.
func (d *Dispatcher) RegisterDefaults() {
	d.RegisterCommand(Command{
		Name:             "getver",
		Text:             "getver",
		DailyLimit:       5,
		SessionLimit:     2,
		MinRetryInterval: 2 * time.Minute,
		Needed: func(ctx context.Context, d *Dispatcher, imei string) bool {
			return d.getString(ctx, store.DeviceKey(imei, "fw")) == "" ||
				d.getString(ctx, store.DeviceKey(imei, "model")) == ""
		},
	})
	d.RegisterCommand(Command{
		Name:             "iccid_primary",
		Text:             "getimeiccid",
		DailyLimit:       3,
		SessionLimit:     1,
		MinRetryInterval: 5 * time.Minute,
		Needed:           needsICCID,
	})
	d.RegisterCommand(Command{
		Name:             "iccid_fallback",
		Text:             "getparam 219,220,221",
		DailyLimit:       3,
		SessionLimit:     1,
		MinRetryInterval: 5 * time.Minute,
		Needed: func(ctx context.Context, d *Dispatcher, imei string) bool {
			// only once the primary lookup has used its session budget and timed out
			return needsICCID(ctx, d, imei) && d.sessionExhausted(imei, "iccid_primary")
		},
	})
}

func needsICCID(ctx context.Context, d *Dispatcher, imei string) bool {
	return d.getString(ctx, store.DeviceKey(imei, "iccid")) == ""
}

/* =======================================================================
                     PER-IMEI COMMAND SESSION STATE
======================================================================= */

type perCmdState struct {
	SessionCount int
	LastAttempt  time.Time
}

// reserve claims one session attempt of cmd for imei at now when the session limit and
// the retry interval allow it. It returns the state before the claim so a failed send
// can hand it back with restore.
func (d *Dispatcher) reserve(imei string, cmd Command, now time.Time) (perCmdState, bool) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()

	if d.cmdState[imei] == nil {
		d.cmdState[imei] = make(map[string]*perCmdState)
	}
	st, ok := d.cmdState[imei][cmd.Name]
	if !ok {
		st = &perCmdState{}
		d.cmdState[imei][cmd.Name] = st
	}
	prev := *st

	/* ---------------- session-limit ---------------- */
	if st.SessionCount >= cmd.SessionLimit {
		return prev, false
	}

	/* -------------- min retry interval -------------- */
	if !st.LastAttempt.IsZero() &&
		now.Sub(st.LastAttempt) < cmd.MinRetryInterval {
		return prev, false
	}

	st.SessionCount++
	st.LastAttempt = now
	return prev, true
}

// restore undoes a reserve whose command was not sent. A session reset in between
// wins: there is nothing to restore into.
func (d *Dispatcher) restore(imei, name string, prev perCmdState) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if st, ok := d.cmdState[imei][name]; ok {
		*st = prev
	}
}

// sessionExhausted reports whether name has spent its session budget and its last
// attempt is older than MinRetryInterval.
func (d *Dispatcher) sessionExhausted(imei, name string) bool {
	cmd, ok := d.getCmd(name)
	if !ok {
		return true
	}
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	st := d.cmdState[imei][name]
	return st != nil && st.SessionCount >= cmd.SessionLimit &&
		d.now().Sub(st.LastAttempt) >= cmd.MinRetryInterval
}

/* =======================================================================
                  UNIVERSAL COMMAND SCHEDULE FUNCTION
======================================================================= */

// TrySchedule writes cmdName to w if all of its limits allow it. It reports whether
// the command was sent.
func (d *Dispatcher) TrySchedule(ctx context.Context, imei, cmdName string, w io.Writer) bool {
	cmd, ok := d.getCmd(cmdName)
	if !ok {
		d.logger.Warn("unknown command", "cmd", cmdName)
		return false
	}

	if cmd.Needed != nil && !cmd.Needed(ctx, d, imei) {
		return false
	}

	prev, ok := d.reserve(imei, cmd, d.now())
	if !ok {
		return false
	}

	/* -------------- daily limit via Redis ------------ */
	allowed, dailyCount, err := d.store.IncDailyCmdCounter(ctx, imei, cmdName, cmd.DailyLimit)
	if err != nil {
		d.logger.Warn("daily counter failed", "cmd", cmdName, "imei", imei, "err", err)
		d.restore(imei, cmdName, prev)
		return false
	}
	if !allowed {
		d.restore(imei, cmdName, prev)
		return false
	}

	/* --------------------- SEND --------------------- */
	frame, err := codec.BuildCodec12(cmd.Text)
	if err != nil {
		d.logger.Error("command encode failed", "cmd", cmdName, "err", err)
		d.restore(imei, cmdName, prev)
		return false
	}
	if _, err := w.Write(frame); err != nil {
		d.logger.Error("command send failed", "cmd", cmdName, "imei", imei, "err", err)
		d.restore(imei, cmdName, prev)
		return false
	}

	observability.CommandsSent.WithLabelValues(cmdName).Inc()

	d.logger.Info("command sent",
		"cmd", cmdName,
		"imei", imei,
		"session", prev.SessionCount+1,
		"daily", dailyCount,
	)
	return true
}

// ScheduleAll tries every registered command in order and returns how many were sent.
func (d *Dispatcher) ScheduleAll(ctx context.Context, imei string, w io.Writer) int {
	sent := 0
	for _, name := range d.Commands() {
		if d.TrySchedule(ctx, imei, name, w) {
			sent++
		}
	}
	return sent
}

/* =======================================================================
              UNIVERSAL ROUTER FOR COMMAND RESPONSES
======================================================================= */

func (d *Dispatcher) HandleCommandResponses(ctx context.Context, imei, text string) {
	lower := strings.ToLower(text)

	// GETVER
	if strings.Contains(lower, "ver:") ||
		strings.Contains(lower, "hw:") {
		d.HandleGetVerResponse(ctx, imei, text)
		return
	}

	// ICCID PRIMARY
	if strings.Contains(lower, "iccid") {
		d.HandleICCIDResponse(ctx, imei, text)
		return
	}

	// ICCID FALLBACK
	if strings.Contains(lower, "param values") {
		d.HandleICCIDResponse(ctx, imei, text)
		return
	}

	d.logger.Debug("unrouted command response", "imei", imei, "text", text)
}
