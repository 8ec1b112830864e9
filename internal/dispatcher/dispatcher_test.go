package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"teltonika-codec/internal/codec"
)

type memStore struct {
	mu       sync.Mutex
	strings  map[string]string
	counters map[string]int64
	failIncr bool
}

func newMemStore() *memStore {
	return &memStore{strings: map[string]string{}, counters: map[string]int64{}}
}

func (m *memStore) GetString(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strings[key], nil
}

func (m *memStore) SaveString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

func (m *memStore) IncDailyCmdCounter(_ context.Context, imei, cmd string, limit int) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncr {
		return false, 0, errors.New("redis down")
	}
	m.counters[imei+":"+cmd]++
	n := m.counters[imei+":"+cmd]
	return limit <= 0 || n <= int64(limit), n, nil
}

func newTestDispatcher(st StateStore) *Dispatcher {
	return New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const testIMEI = "356307042441013"

func TestTryScheduleWritesCodec12Frame(t *testing.T) {
	d := newTestDispatcher(newMemStore())
	d.RegisterDefaults()

	var buf bytes.Buffer
	if !d.TrySchedule(context.Background(), testIMEI, "getver", &buf) {
		t.Fatal("getver not sent")
	}
	want, err := codec.EncodeCommand("getver", testIMEI)
	if err != nil {
		t.Fatal(err)
	}
	wantBytes, _ := want.Bytes()
	if !bytes.Equal(buf.Bytes(), wantBytes) {
		t.Errorf("frame = %x, want %x", buf.Bytes(), wantBytes)
	}
}

func TestTryScheduleLimits(t *testing.T) {
	st := newMemStore()
	d := newTestDispatcher(st)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	d.RegisterCommand(Command{Name: "getio", Text: "getio", DailyLimit: 3, SessionLimit: 2, MinRetryInterval: time.Minute})

	ctx := context.Background()
	var buf bytes.Buffer
	if !d.TrySchedule(ctx, testIMEI, "getio", &buf) {
		t.Fatal("first attempt not sent")
	}
	if d.TrySchedule(ctx, testIMEI, "getio", &buf) {
		t.Error("retry inside MinRetryInterval was sent")
	}
	now = now.Add(2 * time.Minute)
	if !d.TrySchedule(ctx, testIMEI, "getio", &buf) {
		t.Error("retry after MinRetryInterval not sent")
	}
	now = now.Add(2 * time.Minute)
	if d.TrySchedule(ctx, testIMEI, "getio", &buf) {
		t.Error("session limit exceeded")
	}

	// a new connection gets a fresh session but the daily counter remains
	d.ResetSession(testIMEI)
	if !d.TrySchedule(ctx, testIMEI, "getio", &buf) {
		t.Error("first attempt of new session not sent")
	}
	d.ResetSession(testIMEI)
	if d.TrySchedule(ctx, testIMEI, "getio", &buf) {
		t.Error("daily limit exceeded")
	}

	if d.TrySchedule(ctx, testIMEI, "nope", &buf) {
		t.Error("unknown command sent")
	}
}

func TestTryScheduleSkipsWhenStateKnownOrStoreFails(t *testing.T) {
	st := newMemStore()
	st.strings["dev:"+testIMEI+":fw"] = "03.27.07"
	st.strings["dev:"+testIMEI+":model"] = "FMB920"
	d := newTestDispatcher(st)
	d.RegisterDefaults()

	var buf bytes.Buffer
	if d.TrySchedule(context.Background(), testIMEI, "getver", &buf) {
		t.Error("getver sent although fw and model are known")
	}

	st.failIncr = true
	if d.TrySchedule(context.Background(), testIMEI, "iccid_primary", &buf) {
		t.Error("command sent although daily counter failed")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected bytes written: %x", buf.Bytes())
	}
}

func TestScheduleAllOrdersICCIDFallback(t *testing.T) {
	d := newTestDispatcher(newMemStore())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	d.RegisterDefaults()
	ctx := context.Background()

	var buf bytes.Buffer
	// getver and iccid_primary go out first; the fallback waits for the primary to time out
	if sent := d.ScheduleAll(ctx, testIMEI, &buf); sent != 2 {
		t.Fatalf("first round sent %d commands, want 2", sent)
	}
	if d.sessionExhausted(testIMEI, "iccid_primary") {
		t.Fatal("primary should still be waiting for an answer")
	}

	now = now.Add(6 * time.Minute)
	buf.Reset()
	if sent := d.ScheduleAll(ctx, testIMEI, &buf); sent != 2 {
		t.Fatalf("second round sent %d commands, want getver retry and fallback", sent)
	}
	frames := buf.Bytes()
	getver, _ := codec.BuildCodec12("getver")
	if !bytes.HasPrefix(frames, getver) {
		t.Fatalf("second round does not start with getver: %x", frames)
	}
	buf.Reset()
	buf.Write(frames[len(getver):])
	resp, err := codec.DecodeCommandFrame(buf.Bytes(), testIMEI)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "getparam 219,220,221" {
		t.Errorf("fallback text = %q", resp.Text)
	}
}

func TestHandleCommandResponses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "getver",
			text: "Ver:03.27.07_00 GPS:AXN_5.1.9 Hw:FMB920 Mod:13 IMEI:352093081429150 Init:2019-11-7 8:30",
			want: map[string]string{
				"dev:352093081429150:fw":    "03.27.07_00",
				"dev:352093081429150:model": "FMB920",
			},
		},
		{
			name: "getimeiccid",
			text: "IMEI: 356307042441013 ICCID: 8952020924380762238",
			want: map[string]string{"dev:" + testIMEI + ":iccid": "8952020924380762238"},
		},
		{
			name: "getparam",
			text: "Param values: 219:4051327829469704249, 220:3617572717105460786, 221:3617296498359795712",
			want: map[string]string{"dev:" + testIMEI + ":iccid": "8952020924380762238"},
		},
		{
			name: "unrelated",
			text: "DI1:1 DI2:0 DI3:0 AIN1:0",
			want: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemStore()
			d := newTestDispatcher(st)
			d.HandleCommandResponses(context.Background(), testIMEI, tt.text)
			for k, v := range tt.want {
				if st.strings[k] != v {
					t.Errorf("%s = %q, want %q", k, st.strings[k], v)
				}
			}
			if len(tt.want) == 0 && len(st.strings) != 0 {
				t.Errorf("unexpected writes %v", st.strings)
			}
		})
	}
}

func TestParseICCIDRejectsShortValues(t *testing.T) {
	if _, ok := ParseICCID("ICCID: 1234"); ok {
		t.Error("short iccid accepted")
	}
	if _, ok := ParseICCID("Param values: 219:4051327829469704249"); ok {
		t.Error("incomplete getparam accepted")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func TestTryScheduleConcurrentSessionLimit(t *testing.T) {
	d := newTestDispatcher(newMemStore())
	d.RegisterCommand(Command{Name: "getio", Text: "getio", SessionLimit: 1})

	var (
		w    lockedBuffer
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.TrySchedule(context.Background(), testIMEI, "getio", &w) {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if sent != 1 {
		t.Errorf("sent %d times, want 1", sent)
	}
}

func TestTryScheduleDailyDenialKeepsSessionBudget(t *testing.T) {
	st := newMemStore()
	d := newTestDispatcher(st)
	d.RegisterCommand(Command{Name: "getio", Text: "getio", DailyLimit: 1, SessionLimit: 1})

	// today's budget was spent on an earlier connection
	st.counters[testIMEI+":getio"] = 1

	var buf bytes.Buffer
	if d.TrySchedule(context.Background(), testIMEI, "getio", &buf) {
		t.Fatal("sent past the daily limit")
	}
	if d.sessionExhausted(testIMEI, "getio") {
		t.Error("denied attempt used the session budget")
	}
}
