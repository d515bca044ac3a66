package attnexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/born-ml/lingua/internal/logger"
)

// LatestTicket is the Flight ticket that streams the most recent capture.
const LatestTicket = "attention/latest"

// maxMessageSize bounds a single gRPC message; one capture is one record.
const maxMessageSize = 64 << 20

// FlightServer publishes the most recent attention capture over Arrow Flight.
//
// Publish replaces the capture; DoGet with LatestTicket streams it. Captures
// are never mutated after publication, so readers share one record.
type FlightServer struct {
	flight.BaseFlightServer

	mem    memory.Allocator
	log    zerolog.Logger
	server flight.Server

	mu     sync.RWMutex
	latest arrow.Record
}

// NewFlightServer listens on addr ("host:port", port 0 picks a free port).
// Call Serve to start handling requests.
func NewFlightServer(addr string, log zerolog.Logger) (*FlightServer, error) {
	s := &FlightServer{
		mem: memory.NewGoAllocator(),
		log: logger.Component(log, "attnexport"),
	}
	s.server = flight.NewServerWithMiddleware(nil, grpc.MaxSendMsgSize(maxMessageSize))
	if err := s.server.Init(addr); err != nil {
		return nil, fmt.Errorf("attnexport: listen on %s: %w", addr, err)
	}
	s.server.RegisterFlightService(s)
	return s, nil
}

// Addr returns the listening address.
func (s *FlightServer) Addr() net.Addr {
	return s.server.Addr()
}

// Serve blocks handling requests until Shutdown.
func (s *FlightServer) Serve() error {
	s.log.Info().Str("addr", s.Addr().String()).Msg("serving attention captures")
	return s.server.Serve()
}

// Shutdown stops the server and releases the current capture.
func (s *FlightServer) Shutdown() {
	s.server.Shutdown()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil {
		s.latest.Release()
		s.latest = nil
	}
}

// Publish builds a record from c and makes it the latest capture.
func (s *FlightServer) Publish(c Capture) error {
	rec, err := BuildRecord(s.mem, c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.latest
	s.latest = rec
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
	s.log.Debug().Int64("rows", rec.NumRows()).Msg("published attention capture")
	return nil
}

// acquire returns the latest record with an extra reference, or nil.
func (s *FlightServer) acquire() arrow.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	s.latest.Retain()
	return s.latest
}

// GetFlightInfo describes the latest capture.
func (s *FlightServer) GetFlightInfo(_ context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	rec := s.acquire()
	if rec == nil {
		return nil, status.Error(codes.NotFound, "no attention capture published")
	}
	defer rec.Release()

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(Schema, s.mem),
		FlightDescriptor: desc,
		Endpoint: []*flight.FlightEndpoint{{
			Ticket: &flight.Ticket{Ticket: []byte(LatestTicket)},
		}},
		TotalRecords: rec.NumRows(),
		TotalBytes:   -1,
	}, nil
}

// DoGet streams the latest capture.
func (s *FlightServer) DoGet(tkt *flight.Ticket, fs flight.FlightService_DoGetServer) error {
	if string(tkt.GetTicket()) != LatestTicket {
		return status.Errorf(codes.InvalidArgument, "unknown ticket %q", tkt.GetTicket())
	}
	rec := s.acquire()
	if rec == nil {
		return status.Error(codes.NotFound, "no attention capture published")
	}
	defer rec.Release()

	w := flight.NewRecordWriter(fs, ipc.WithSchema(Schema), ipc.WithAllocator(s.mem))
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return status.Errorf(codes.Internal, "write capture: %v", err)
	}
	return w.Close()
}

// FetchLatest connects to a FlightServer at addr and reads the latest capture.
func FetchLatest(ctx context.Context, addr string, mem memory.Allocator) ([]Row, error) {
	client, err := flight.NewClientWithMiddleware(addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxMessageSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("attnexport: connect to %s: %w", addr, err)
	}
	defer func() {
		_ = client.Close()
	}()

	stream, err := client.DoGet(ctx, &flight.Ticket{Ticket: []byte(LatestTicket)})
	if err != nil {
		return nil, fmt.Errorf("attnexport: DoGet: %w", err)
	}
	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("attnexport: open stream: %w", err)
	}
	defer reader.Release()

	var rows []Row
	for reader.Next() {
		batch, err := Rows(reader.Record())
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("attnexport: read stream: %w", err)
	}
	return rows, nil
}
