package trim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/segmentio/kafka-trim/protocol"
	"github.com/segmentio/kafka-trim/protocol/deleterecords"
)

// RecordDeleter is implemented by the storage layer of a broker to delete the
// records of its partitions.
//
// DeleteRecords returns one result per partition of the request. Partitions
// missing from the returned map are reported with UNKNOWN_SERVER_ERROR. A
// non-nil error fails the whole request, every partition is then reported
// with the error code that the error maps to.
type RecordDeleter interface {
	DeleteRecords(ctx context.Context, req *DeleteRecordsRequest) (map[TopicPartition]PartitionResult, error)
}

// Server serves DeleteRecords requests on the broker side of kafka
// connections.
//
// Connections that send frames which cannot be decoded, requests of other
// apis, or versions of DeleteRecords which are not supported, are closed.
type Server struct {
	// Deleter executes the deletions. Requests are answered with
	// UNKNOWN_SERVER_ERROR when it is nil.
	Deleter RecordDeleter

	// Throttle time reported in every response.
	Throttle time.Duration

	// Collectors updated by the server, nothing is recorded when nil.
	Metrics *Metrics

	// Logger and ErrorLogger receive informational and error messages, they
	// are silent when nil.
	Logger      Logger
	ErrorLogger Logger
}

var errNoDeleter = errors.New("no record deleter configured")

// Serve accepts connections on l and serves them until ctx is canceled or l
// fails. The listener is closed when the method returns, after all
// connections have been served.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	wg := sync.WaitGroup{}
	defer wg.Wait()
	defer cancel()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ServeConn(ctx, conn); err != nil {
				logf(s.ErrorLogger, "serving %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

// ServeConn serves the requests received on conn until the peer closes it,
// an invalid frame is received, or ctx is canceled. conn is always closed
// when the method returns.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		version, correlationID, clientID, msg, err := protocol.ReadRequest(r)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				return err
			}
		}

		m, ok := msg.(*deleterecords.Request)
		if !ok {
			return fmt.Errorf("unexpected %s request from %q", msg.ApiKey(), clientID)
		}

		res, err := s.serve(ctx, m, version)
		if err != nil {
			return err
		}

		if err := protocol.WriteResponse(w, version, correlationID, res); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

func (s *Server) serve(ctx context.Context, m *deleterecords.Request, version int16) (*deleterecords.Response, error) {
	start := time.Now()

	req, err := DecodeDeleteRecordsRequest(m, version)
	if err != nil {
		s.Metrics.observeRequest(sideServer, version, err, time.Since(start))
		return nil, err
	}

	res, err := s.deleteRecords(ctx, req)
	s.Metrics.observeRequest(sideServer, version, err, time.Since(start))

	if err != nil {
		logf(s.ErrorLogger, "deleting records of %d partitions: %v", req.Len(), err)
		if res, err = req.ErrorResponse(s.Throttle, err); err != nil {
			return nil, err
		}
	}

	s.Metrics.observeResponse(sideServer, res)
	return res.Encode()
}

func (s *Server) deleteRecords(ctx context.Context, req *DeleteRecordsRequest) (*DeleteRecordsResponse, error) {
	if s.Deleter == nil {
		return nil, errNoDeleter
	}

	if timeout := req.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results, err := s.Deleter.DeleteRecords(ctx, req)
	if err != nil {
		return nil, err
	}

	complete := make(map[TopicPartition]PartitionResult, req.Len())
	for tp := range req.offsets {
		r, ok := results[tp]
		if !ok {
			r = PartitionResult{
				LowWatermark: InvalidLowWatermark,
				ErrorCode:    kerr.UnknownServerError.Code,
			}
		}
		complete[tp] = r
	}

	logf(s.Logger, "deleted records of %d partitions", len(complete))
	return NewDeleteRecordsResponse(req.Version(), s.Throttle, complete), nil
}
