package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrRestarted is returned by ReadEvent when the target restarted tracing
// mid-stream. The decoder has already re-synchronized on the new header;
// the caller decides what per-stream state to reset.
var ErrRestarted = errors.New("recorder: trace stream restarted")

var startWord = [4]byte{'P', 'S', 'F', 0x00}

// Decoder reads decoded events from a PSF-framed capture stream.
type Decoder struct {
	r   *bufio.Reader
	hdr Header
}

// NewDecoder scans r for the PSF start word and reads the stream header.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{r: bufio.NewReader(r)}
	if err := d.findStartWord(); err != nil {
		return nil, fmt.Errorf("locating start word: %w", err)
	}
	if err := d.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return d, nil
}

// Header returns the most recently read stream header. It changes when the
// decoder observes a restarted stream.
func (d *Decoder) Header() Header { return d.hdr }

// ReadEvent decodes the next event frame. It returns io.EOF at a clean end
// of stream and ErrRestarted when a new start word is found where an event
// frame was expected.
func (d *Decoder) ReadEvent() (*Event, error) {
	if restarted, err := d.checkRestart(); err != nil {
		return nil, err
	} else if restarted {
		return nil, ErrRestarted
	}

	var code EventCode
	if err := binary.Read(d.r, binary.LittleEndian, &code); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading event code: %w", err)
	}

	ev := &Event{Code: code}
	if err := binary.Read(d.r, binary.LittleEndian, &ev.Counter); err != nil {
		return nil, fmt.Errorf("reading event counter: %w", err)
	}
	if err := binary.Read(d.r, binary.LittleEndian, &ev.Timestamp); err != nil {
		return nil, fmt.Errorf("reading event timestamp: %w", err)
	}

	switch code.Kind() {
	case KindTraceStart, KindTaskReady, KindTaskResume, KindTaskActivate:
		info, err := d.readIdentity()
		if err != nil {
			return nil, fmt.Errorf("reading task payload for %v: %w", code.Kind(), err)
		}
		ev.Task = &TaskInfo{Handle: info.Handle, Name: info.Name, Priority: info.Priority}
	case KindIsrBegin, KindIsrResume:
		info, err := d.readIdentity()
		if err != nil {
			return nil, fmt.Errorf("reading isr payload for %v: %w", code.Kind(), err)
		}
		ev.Isr = info
	case KindUserEvent:
		user, err := d.readUser()
		if err != nil {
			return nil, fmt.Errorf("reading user event payload: %w", err)
		}
		ev.User = user
	default:
		// Parameter words of kinds the converter has no payload for are
		// consumed and discarded.
		if err := d.skipWords(code.ParamCount()); err != nil {
			return nil, fmt.Errorf("skipping payload for %v: %w", code.Kind(), err)
		}
	}

	return ev, nil
}

// checkRestart peeks for a start word at a frame boundary. On a match it
// consumes the word and the new header.
func (d *Decoder) checkRestart() (bool, error) {
	head, err := d.r.Peek(len(startWord))
	if err != nil {
		// Fewer than 4 bytes left; let the frame reads report EOF.
		return false, nil
	}
	if [4]byte(head) != startWord {
		return false, nil
	}
	if _, err := d.r.Discard(len(startWord)); err != nil {
		return false, err
	}
	if err := d.readHeader(); err != nil {
		return false, fmt.Errorf("reading header after restart: %w", err)
	}
	return true, nil
}

func (d *Decoder) findStartWord() error {
	matched := 0
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == startWord[matched] {
			matched++
			if matched == len(startWord) {
				return nil
			}
		} else if b == startWord[0] {
			matched = 1
		} else {
			matched = 0
		}
	}
}

func (d *Decoder) readHeader() error {
	var hdr Header
	if err := binary.Read(d.r, binary.LittleEndian, &hdr.FormatVersion); err != nil {
		return err
	}
	platform, err := d.readString()
	if err != nil {
		return err
	}
	hdr.Platform = platform
	if err := binary.Read(d.r, binary.LittleEndian, &hdr.TimerFrequency); err != nil {
		return err
	}
	if err := binary.Read(d.r, binary.LittleEndian, &hdr.TimerBits); err != nil {
		return err
	}
	if hdr.TimerBits == 0 || hdr.TimerBits > 32 {
		return fmt.Errorf("invalid timer width %d bits", hdr.TimerBits)
	}
	if err := binary.Read(d.r, binary.LittleEndian, &hdr.TimerWraparounds); err != nil {
		return err
	}
	d.hdr = hdr
	return nil
}

func (d *Decoder) readIdentity() (*IsrInfo, error) {
	var handle, priority uint32
	if err := binary.Read(d.r, binary.LittleEndian, &handle); err != nil {
		return nil, err
	}
	if err := binary.Read(d.r, binary.LittleEndian, &priority); err != nil {
		return nil, err
	}
	name, err := d.readString()
	if err != nil {
		return nil, err
	}
	return &IsrInfo{Handle: handle, Name: name, Priority: priority}, nil
}

func (d *Decoder) readUser() (*UserInfo, error) {
	channel, err := d.readString()
	if err != nil {
		return nil, err
	}
	format, err := d.readString()
	if err != nil {
		return nil, err
	}
	formatted, err := d.readString()
	if err != nil {
		return nil, err
	}
	return &UserInfo{Channel: channel, Format: format, Formatted: formatted}, nil
}

// readString reads a length-prefixed string: u8 length then raw bytes.
func (d *Decoder) readString() (string, error) {
	n, err := d.r.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *Decoder) skipWords(n int) error {
	if n == 0 {
		return nil
	}
	_, err := d.r.Discard(n * 4)
	return err
}
