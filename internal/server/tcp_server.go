package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"teltonika-codec/internal/codec"
	"teltonika-codec/internal/dispatcher"
	"teltonika-codec/internal/link"
	"teltonika-codec/internal/observability"
	"teltonika-codec/internal/pipeline"
	"teltonika-codec/internal/store"
)

// Store is the device state the server needs: the dispatcher's key/value state plus
// the last tracking object.
type Store interface {
	dispatcher.StateStore
	SaveTracking(ctx context.Context, tr *pipeline.TrackingObject) error
}

// Sink receives every tracking object built from an accepted frame.
type Sink interface {
	Forward(ctx context.Context, tr *pipeline.TrackingObject) error
}

// ConnectNotifier is implemented by sinks that are told about every accepted handshake.
type ConnectNotifier interface {
	DeviceConnected(ctx context.Context, info link.DeviceInfo) error
}

type Options struct {
	ReadTimeout  time.Duration
	MaxFrameSize int // <= 0 selects defaultMaxFrameSize
}

const defaultMaxFrameSize = 64 * 1024

type TcpServer struct {
	logger     *slog.Logger
	store      Store
	sinks      []Sink
	dispatcher *dispatcher.Dispatcher
	opts       Options
	now        func() time.Time

	mu                sync.Mutex
	activeConnections map[string]net.Conn
}

// New builds a server. Without sinks tracking objects are only stored.
func New(logger *slog.Logger, st Store, disp *dispatcher.Dispatcher, opts Options, sinks ...Sink) *TcpServer {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = defaultMaxFrameSize
	}
	return &TcpServer{
		logger:            logger.With("component", "tcp"),
		store:             st,
		sinks:             sinks,
		dispatcher:        disp,
		opts:              opts,
		now:               time.Now,
		activeConnections: make(map[string]net.Conn),
	}
}

// Start listens on addr and serves until ctx is done.
func (srv *TcpServer) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error starting TCP server: %w", err)
	}
	return srv.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done. It closes listener.
func (srv *TcpServer) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	srv.logger.Info("TCP server listening", "addr", listener.Addr().String())

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			srv.logger.Error("accept error", "err", err)
			continue
		}

		observability.TCPConnections.Inc()
		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			srv.HandleConnection(ctx, c)
		}(conn)
	}
}

// ActiveConnections returns the IMEIs currently connected.
func (srv *TcpServer) ActiveConnections() []string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make([]string, 0, len(srv.activeConnections))
	for imei := range srv.activeConnections {
		out = append(out, imei)
	}
	return out
}

func (srv *TcpServer) register(imei string, conn net.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if old, ok := srv.activeConnections[imei]; ok && old != conn {
		srv.logger.Warn("replacing previous connection", "imei", imei, "remote", old.RemoteAddr().String())
		_ = old.Close()
	}
	srv.activeConnections[imei] = conn
}

// unregister removes conn and reports whether it was still the registered connection
// of imei. A connection that was replaced leaves the entry to its successor.
func (srv *TcpServer) unregister(imei string, conn net.Conn) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.activeConnections[imei] != conn {
		return false
	}
	delete(srv.activeConnections, imei)
	return true
}

func (srv *TcpServer) setDeadline(conn net.Conn) {
	if srv.opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(srv.opts.ReadTimeout))
	}
}

// HandleConnection runs the handshake and then the frame loop of one device.
func (srv *TcpServer) HandleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0)
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(60 * time.Second)
	}
	remote := conn.RemoteAddr().String()

	/* ---------------- handshake ---------------- */
	srv.setDeadline(conn)
	deviceIMEI, raw, err := ReadHandshake(conn)
	if err != nil {
		observability.HandshakeRejected.Inc()
		srv.logger.Warn("handshake rejected", "remote", remote, "raw", raw, "err", err)
		_, _ = conn.Write([]byte{0x00})
		return
	}
	if _, err := conn.Write([]byte{0x01}); err != nil {
		srv.logger.Error("handshake reply failed", "imei", deviceIMEI, "err", err)
		return
	}
	observability.HandshakeOK.Inc()
	srv.register(deviceIMEI, conn)
	srv.logger.Info("IMEI detected", "imei", deviceIMEI, "remote", remote)
	srv.notifyConnect(ctx, deviceIMEI, remote)

	defer func() {
		// the session belongs to the newest connection of the IMEI
		if srv.unregister(deviceIMEI, conn) {
			srv.dispatcher.ResetSession(deviceIMEI)
		}
		srv.logger.Info("device disconnected", "imei", deviceIMEI)
	}()

	/* ---------------- frame loop ---------------- */
	for {
		srv.setDeadline(conn)
		frame, err := ReadFrame(conn, srv.opts.MaxFrameSize)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
			case errors.As(err, &netErr) && netErr.Timeout():
				srv.logger.Info("read timeout", "imei", deviceIMEI)
			default:
				observability.DecodeErrors.WithLabelValues(readErrorKind(err)).Inc()
				srv.logger.Warn("read error", "imei", deviceIMEI, "err", err)
			}
			return
		}

		id := codec.CodecID(frame[codec8IDOffset])
		observability.FramesRecv.WithLabelValues(id.String()).Inc()

		switch id {
		case codec.Codec12:
			srv.handleCommandResponse(ctx, deviceIMEI, frame)
		default:
			if err := srv.handleTelemetry(ctx, conn, deviceIMEI, frame); err != nil {
				srv.logger.Error("ack write failed", "imei", deviceIMEI, "err", err)
				return
			}
		}
	}
}

const codec8IDOffset = 8

func readErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrBadPreamble):
		return "bad_preamble"
	case errors.Is(err, ErrFrameTooLong):
		return "too_long"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated"
	default:
		return codec.ErrorKind(err)
	}
}

// handleTelemetry decodes an AVL frame, stores its records and acknowledges the record
// count. Sinks get the records after the ack so a slow upstream never delays it. A
// frame that does not decode is acknowledged with zero.
func (srv *TcpServer) handleTelemetry(ctx context.Context, conn net.Conn, imei string, frame []byte) error {
	start := time.Now()
	records, err := codec.DecodeTelemetryFrame(frame)
	observability.ObserveParseLatency(start)
	if err != nil {
		observability.DecodeErrors.WithLabelValues(codec.ErrorKind(err)).Inc()
		srv.logger.Warn("telemetry decode failed",
			"imei", imei,
			"err", err,
			"frame", codec.BytesToHex(frame),
		)
		return writeAck(conn, 0)
	}

	model := srv.stateString(ctx, store.DeviceKey(imei, "model"))
	fw := srv.stateString(ctx, store.DeviceKey(imei, "fw"))
	isBatch := len(records) > 1
	now := srv.now()

	tracking := make([]*pipeline.TrackingObject, 0, len(records))
	for _, rec := range records {
		tr, err := pipeline.BuildTracking(imei, rec, isBatch, model, fw, now)
		if err != nil {
			srv.logger.Warn("tracking build failed", "imei", imei, "err", err)
			continue
		}
		if err := srv.store.SaveTracking(ctx, tr); err != nil {
			observability.StoreErrors.Inc()
			srv.logger.Warn("tracking save failed", "imei", imei, "err", err)
		}
		srv.logger.Debug("record",
			"imei", imei,
			"datetime", tr.Datetime,
			"geohash", tr.GeoHash,
			"msg_type", tr.MsgType,
			"event", tr.EventID,
		)
		tracking = append(tracking, tr)
	}

	if err := writeAck(conn, uint32(len(records))); err != nil {
		return err
	}
	observability.RecordsAck.Add(float64(len(records)))
	srv.logger.Info("telemetry acknowledged", "imei", imei, "codec", records[0].Codec.String(), "records", len(records))

	srv.forward(ctx, imei, tracking)
	srv.dispatcher.ScheduleAll(ctx, imei, conn)
	return nil
}

func (srv *TcpServer) forward(ctx context.Context, imei string, tracking []*pipeline.TrackingObject) {
	for _, sink := range srv.sinks {
		for _, tr := range tracking {
			if err := sink.Forward(ctx, tr); err != nil {
				observability.ForwardErrors.Inc()
				srv.logger.Warn("forward failed", "imei", imei, "err", err)
			}
		}
	}
}

func (srv *TcpServer) handleCommandResponse(ctx context.Context, imei string, frame []byte) {
	resp, err := codec.DecodeCommandFrame(frame, imei)
	if err != nil {
		observability.DecodeErrors.WithLabelValues(codec.ErrorKind(err)).Inc()
		srv.logger.Warn("command response decode failed", "imei", imei, "err", err)
		return
	}
	srv.logger.Info("command response", "imei", imei, "type", uint8(resp.Type), "text", resp.Text)
	if resp.Type == codec.TypeNotExecuted {
		return
	}
	srv.dispatcher.HandleCommandResponses(ctx, imei, resp.Text)
}

func (srv *TcpServer) notifyConnect(ctx context.Context, imei, remote string) {
	var info *link.DeviceInfo
	for _, sink := range srv.sinks {
		n, ok := sink.(ConnectNotifier)
		if !ok {
			continue
		}
		if info == nil {
			info = &link.DeviceInfo{
				IMEI:     imei,
				FWVer:    srv.stateString(ctx, store.DeviceKey(imei, "fw")),
				Model:    srv.stateString(ctx, store.DeviceKey(imei, "model")),
				ICCID:    srv.stateString(ctx, store.DeviceKey(imei, "iccid")),
				RemoteIP: remote,
			}
		}
		if err := n.DeviceConnected(ctx, *info); err != nil {
			srv.logger.Warn("connect notify failed", "imei", imei, "err", err)
		}
	}
}

func (srv *TcpServer) stateString(ctx context.Context, key string) string {
	v, err := srv.store.GetString(ctx, key)
	if err != nil {
		srv.logger.Warn("state read failed", "key", key, "err", err)
	}
	return v
}

func writeAck(w io.Writer, records uint32) error {
	var ack [4]byte
	binary.BigEndian.PutUint32(ack[:], records)
	_, err := w.Write(ack[:])
	return err
}
