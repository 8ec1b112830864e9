package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"teltonika-codec/internal/pipeline"
)

// ErrRejected is returned when the forwarder answers without success.
var ErrRejected = errors.New("forwarder rejected data")

const sendTimeout = 5 * time.Second

type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient creates a plaintext client for addr. opts are appended to the defaults.
func NewGRPCClient(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn}, nil
}

func (g *GRPCClient) Close() error {
	return g.conn.Close()
}

func (g *GRPCClient) SendData(ctx context.Context, deviceID string, payload *structpb.Struct) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"device_id": structpb.NewStringValue(deviceID),
		"payload":   structpb.NewStructValue(payload),
	}}
	res := new(wrapperspb.BoolValue)
	if err := g.conn.Invoke(ctx, SendDataMethod, req, res); err != nil {
		return fmt.Errorf("forward %s: %w", deviceID, err)
	}
	if !res.GetValue() {
		return fmt.Errorf("%w for device %s", ErrRejected, deviceID)
	}
	return nil
}

// Forward sends tr keyed by its IMEI.
func (g *GRPCClient) Forward(ctx context.Context, tr *pipeline.TrackingObject) error {
	payload, err := pipeline.ToStruct(tr)
	if err != nil {
		return fmt.Errorf("encode tracking: %w", err)
	}
	return g.SendData(ctx, tr.IMEI, payload)
}
