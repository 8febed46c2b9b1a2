// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "popdetect/internal/log"
)

// DefaultEnvelopeBins is the number of envelope values carried by each packet.
const DefaultEnvelopeBins = 128

// packetHeaderSize covers the sequence number, timestamp and value count.
const packetHeaderSize = 4 + 8 + 2

// MaxEnvelopeBins is the most float32 values a packet can carry in one datagram.
const MaxEnvelopeBins = (MaxFrameSize - packetHeaderSize) / 4

// EnvelopeSource fills dst with the amplitude envelope of the most recent audio, one value per
// element. The live sample buffer implements it.
type EnvelopeSource interface {
	EnvelopeInto(dst []float64) error
}

// UDPPublisher periodically reads the envelope of the live capture buffer, packs it into a
// binary packet and sends it with a UDPSender. It is the network-facing counterpart of the
// terminal monitor: a periodic reader that never writes to the buffer.
type UDPPublisher struct {
	sender   *UDPSender
	source   EnvelopeSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Reused on every tick; only the publisher goroutine touches them.
	envBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher sending bins envelope values every interval.
// An invalid interval defaults to 33ms (~30Hz); bins <= 0 selects DefaultEnvelopeBins.
func NewUDPPublisher(interval time.Duration, bins int, sender *UDPSender, source EnvelopeSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: envelope source cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	if bins <= 0 {
		bins = DefaultEnvelopeBins
	}
	if bins > MaxEnvelopeBins {
		return nil, fmt.Errorf("UDPPublisher: %d bins do not fit in one datagram (max %d)", bins, MaxEnvelopeBins)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Envelope Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		envBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never reads the fields Stop resets.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publishing goroutine and waits for it to exit. Safe to call repeatedly.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished after %d packets.", p.sequenceNum)
	return nil
}

/*
Envelope packet layout (BigEndian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Value Count  |     Envelope values     |
|      (uint32)     |   (int64, unix ns)    |   (uint16)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+

Each value is the peak absolute amplitude of one bin of the trailing window, oldest first.
*/

// encodePacket writes one packet for the current envelope into p.packetBuffer.
func (p *UDPPublisher) encodePacket(timestamp int64) error {
	for i, v := range p.envBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	return err
}

func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.source.EnvelopeInto(p.envBuffer); err != nil {
		applog.Errorf("UDPPublisher: Error reading envelope: %v", err)
		return
	}
	if err := p.encodePacket(time.Now().UnixNano()); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	packet := p.packetBuffer.Bytes()
	// Send errors are logged by the sender.
	if err := p.sender.Send(packet); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
	}
}

// Close implements io.Closer by stopping the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
