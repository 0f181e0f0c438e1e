package enum

import (
	"database/sql/driver"
	"fmt"
)

// SourceChannel is the channel an order or receipt originated from
type SourceChannel string

const (
	SourceOnline SourceChannel = "online"
	SourcePOS    SourceChannel = "pos"
	SourceManual SourceChannel = "manual"
)

func (s SourceChannel) IsValid() bool {
	switch s {
	case SourceOnline, SourcePOS, SourceManual:
		return true
	}
	return false
}

// Bucket folds legacy and unknown values into online.
func (s SourceChannel) Bucket() SourceChannel {
	switch s {
	case SourcePOS, SourceManual:
		return s
	}
	return SourceOnline
}

// TrackingPrefix is the prefix of tracking ids minted for this channel.
func (s SourceChannel) TrackingPrefix() string {
	if s == SourceManual {
		return "MAN-"
	}
	return "TRK-"
}

func (s SourceChannel) String() string {
	return string(s)
}

func (s SourceChannel) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *SourceChannel) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = ""
	case string:
		*s = SourceChannel(v)
	case []byte:
		*s = SourceChannel(v)
	default:
		return fmt.Errorf("cannot scan %T into SourceChannel", value)
	}
	return nil
}
