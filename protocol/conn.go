package protocol

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

// RoundTrip writes a request to rw, flushes it and reads the response. No
// other request may be in flight on the underlying connection.
func RoundTrip(rw *bufio.ReadWriter, apiVersion int16, correlationID int32, clientID string, msg Message) (Message, error) {
	if err := WriteRequest(rw, apiVersion, correlationID, clientID, msg); err != nil {
		return nil, err
	}
	if err := rw.Flush(); err != nil {
		return nil, err
	}
	id, res, err := ReadResponse(rw.Reader, msg.ApiKey(), apiVersion)
	switch {
	case err != nil:
		return nil, err
	case id != correlationID:
		return nil, fmt.Errorf("%s response carries correlation id %d, expected %d", msg.ApiKey(), id, correlationID)
	}
	return res, nil
}

// Conn exchanges messages with a broker over a network connection. RoundTrip
// calls are serialized.
type Conn struct {
	conn     net.Conn
	rw       *bufio.ReadWriter
	clientID string

	mutex         sync.Mutex
	correlationID int32
	versions      map[ApiKey]int16
}

func NewConn(conn net.Conn, clientID string) *Conn {
	return &Conn{
		conn:     conn,
		rw:       bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
		clientID: clientID,
	}
}

func (c *Conn) Close() error { return c.conn.Close() }

func (c *Conn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

// SetVersions sets the version RoundTrip uses per api. Apis missing from the
// map use their lowest registered version.
func (c *Conn) SetVersions(versions map[ApiKey]int16) {
	m := make(map[ApiKey]int16, len(versions))
	for k, v := range versions {
		m[k] = v
	}
	c.mutex.Lock()
	c.versions = m
	c.mutex.Unlock()
}

func (c *Conn) RoundTrip(msg Message) (Message, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	apiKey := msg.ApiKey()
	version, ok := c.versions[apiKey]
	if !ok {
		version = apiKey.MinVersion()
	}
	c.correlationID++
	return RoundTrip(c.rw, version, c.correlationID, c.clientID, msg)
}
