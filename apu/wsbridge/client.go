package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"log"
	"net"
	"tad/apu"
	"time"
)

// DefaultTimeout bounds one port access round trip.
const DefaultTimeout = 2 * time.Second

var ErrClosed = errors.New("wsbridge: websocket closed")

// Client implements apu.Ports over a websocket. Like every other port transport it cannot
// return errors from the port calls: the first failure closes the connection and is kept in
// Err, after which writes are dropped and reads return 0.
type Client struct {
	urlstr  string
	appName string

	Timeout time.Duration

	ws      net.Conn
	r       *wsutil.Reader
	w       *wsutil.Writer
	encoder *json.Encoder
	decoder *json.Decoder

	err error
}

// Dial connects to a Server and introduces the client by name.
func Dial(ctx context.Context, urlstr string, name string) (c *Client, err error) {
	c = &Client{
		urlstr:  urlstr,
		appName: name,
		Timeout: DefaultTimeout,
	}

	log.Printf("wsbridge: [%s] dial %s\n", c.appName, c.urlstr)
	c.ws, _, _, err = ws.Dial(ctx, c.urlstr)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: [%s] dial: %w", c.appName, err)
	}

	c.r = wsutil.NewClientSideReader(c.ws)
	c.w = wsutil.NewWriter(c.ws, ws.StateClientSide, ws.OpText)
	c.encoder = json.NewEncoder(c.w)
	c.decoder = json.NewDecoder(c.r)

	err = c.SendCommand(Command{
		Opcode:   OpName,
		Space:    SpaceAPU,
		Operands: []string{c.appName},
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	return
}

func (c *Client) Close() (err error) {
	if c.ws == nil {
		return
	}

	log.Printf("wsbridge: [%s] close websocket\n", c.appName)
	err = c.ws.Close()

	c.ws = nil
	c.r = nil
	c.w = nil
	c.encoder = nil
	c.decoder = nil

	return
}

// Err returns the failure that closed the client, if any.
func (c *Client) Err() error { return c.err }

func (c *Client) fail(err error) {
	if c.err != nil {
		return
	}
	c.err = err
	log.Printf("%v\n", err)
	c.Close()
}

func (c *Client) SendCommand(cmd Command) (err error) {
	if c.ws == nil {
		return ErrClosed
	}

	if c.Timeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.Timeout))
	}

	err = c.encoder.Encode(cmd)
	if err != nil {
		return fmt.Errorf("wsbridge: [%s] %s command encode: %w", c.appName, cmd.Opcode, err)
	}

	err = c.w.Flush()
	if err != nil {
		return fmt.Errorf("wsbridge: [%s] %s command flush: %w", c.appName, cmd.Opcode, err)
	}
	return
}

func (c *Client) ReadCommandResponse(name string, rsp *Result) (err error) {
	if c.ws == nil {
		return ErrClosed
	}

	if c.Timeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.Timeout))
	}

	hdr, err := c.r.NextFrame()
	if err != nil {
		return fmt.Errorf("wsbridge: [%s] %s command response: error reading next websocket frame: %w", c.appName, name, err)
	}
	if hdr.OpCode == ws.OpClose {
		return fmt.Errorf("wsbridge: [%s] %s command response: %w", c.appName, name, ErrClosed)
	}

	err = c.decoder.Decode(rsp)
	if err != nil {
		return fmt.Errorf("wsbridge: [%s] %s command response: decode response: %w", c.appName, name, err)
	}
	return
}

func (c *Client) ReadPort(port apu.Port) uint8 {
	if c.err != nil {
		return 0
	}

	if err := c.SendCommand(readCommand(port)); err != nil {
		c.fail(err)
		return 0
	}

	var rsp Result
	if err := c.ReadCommandResponse(OpRead, &rsp); err != nil {
		c.fail(err)
		return 0
	}
	if len(rsp.Results) != 1 {
		c.fail(fmt.Errorf("wsbridge: [%s] read %v: expected 1 result, got %d", c.appName, port, len(rsp.Results)))
		return 0
	}

	v, err := parseHex(rsp.Results[0])
	if err != nil {
		c.fail(fmt.Errorf("wsbridge: [%s] read %v: %w", c.appName, port, err))
		return 0
	}
	return v
}

func (c *Client) WritePort(port apu.Port, value uint8) {
	if c.err != nil {
		return
	}

	if err := c.SendCommand(writeCommand(port, value)); err != nil {
		c.fail(err)
	}
}
