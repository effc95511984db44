// navlist/tacan.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmp/navdb/positioned"
)

var ErrInvalidChannel = errors.New("Invalid TACAN channel")

// TACANRecord associates a TACAN channel with its paired VHF frequency.
type TACANRecord struct {
	Channel string
	Freq    positioned.Frequency
}

// TACANList maps TACAN channels (e.g., "29X") to the records for them.
type TACANList struct {
	channels map[string][]TACANRecord
}

func NewTACANList() *TACANList {
	return &TACANList{channels: make(map[string][]TACANRecord)}
}

// NewStandardTACANList returns a TACANList holding the standard VHF
// pairings of channels 17-59 and 70-126, X and Y.
func NewStandardTACANList() *TACANList {
	l := NewTACANList()
	for ch := 17; ch <= 126; ch++ {
		for _, mode := range []string{"X", "Y"} {
			channel := strconv.Itoa(ch) + mode
			if f, err := ChannelFrequency(channel); err == nil {
				l.Add(channel, f)
			}
		}
	}
	return l
}

func (l *TACANList) Add(channel string, freq positioned.Frequency) {
	channel = strings.ToUpper(channel)
	l.channels[channel] = append(l.channels[channel], TACANRecord{Channel: channel, Freq: freq})
}

// FindByChannel returns the first record added for the channel.
func (l *TACANList) FindByChannel(channel string) (TACANRecord, bool) {
	if l == nil {
		return TACANRecord{}, false
	}
	recs := l.channels[strings.ToUpper(channel)]
	if len(recs) == 0 {
		return TACANRecord{}, false
	}
	return recs[0], true
}

// ChannelFrequency returns the VHF frequency paired with a TACAN channel.
// Channels 1-16 and 60-69 have no VHF pairing.
func ChannelFrequency(channel string) (positioned.Frequency, error) {
	channel = strings.ToUpper(strings.TrimSpace(channel))
	if len(channel) < 2 {
		return 0, fmt.Errorf("%q: %w", channel, ErrInvalidChannel)
	}
	mode := channel[len(channel)-1]
	if mode != 'X' && mode != 'Y' {
		return 0, fmt.Errorf("%q: %w", channel, ErrInvalidChannel)
	}
	ch, err := strconv.Atoi(channel[:len(channel)-1])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", channel, ErrInvalidChannel)
	}

	// Frequencies are in hundredths of a MHz.
	var f int
	switch {
	case ch >= 17 && ch <= 59:
		f = 10800 + (ch-17)*10
	case ch >= 70 && ch <= 126:
		f = 11230 + (ch-70)*10
	default:
		return 0, fmt.Errorf("%q: %w", channel, ErrInvalidChannel)
	}
	if mode == 'Y' {
		f += 5
	}
	return positioned.Frequency(f), nil
}
