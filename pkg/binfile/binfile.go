// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package binfile

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// ============================================================================
// Record File Format
// ============================================================================

// Extension is the file extension of declaration records.
const Extension = "ird"

// DefaultMaxNestingDepth is the default limit on the nesting depth of a
// record.  Declaration bodies can nest far deeper than typical wire formats
// permit by default, so this is deliberately generous.
const DefaultMaxNestingDepth uint = 4096

// RECORD_MAJOR_VERSION gives the major version of the record format.  No
// matter what version, a record always begins with the IRRECORD identifier
// followed by the header.  What follows after that, however, is determined by
// the major version.
const RECORD_MAJOR_VERSION uint16 = 1

// RECORD_MINOR_VERSION gives the minor version of the record format.  The
// expected interpretation is that older versions are compatible with newer
// ones, but not vice-versa.
const RECORD_MINOR_VERSION uint16 = 0

// IRRECORD is used as the file identifier for records.  This just helps us
// identify actual records from corrupted files.
var IRRECORD [8]byte = [8]byte{'i', 'r', 'r', 'e', 'c', 'o', 'r', 'd'}

var (
	// ErrMalformedRecord is reported for a record which cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrIncompatibleRecord is reported for a record of an unsupported version.
	ErrIncompatibleRecord = errors.New("incompatible record")
	// ErrNestingLimit is reported for a record nested beyond the permitted
	// depth.
	ErrNestingLimit = errors.New("record nesting limit exceeded")
)

// Header provides a structured header for the record format.  In particular,
// it supports versioning and embedded (binary) metadata.
type Header struct {
	Identifier   [8]byte
	MajorVersion uint16
	MinorVersion uint16
	MetaData     []byte
}

// NewHeader constructs a header for the currently supported version.
func NewHeader(metadata []byte) Header {
	return Header{IRRECORD, RECORD_MAJOR_VERSION, RECORD_MINOR_VERSION, metadata}
}

// MarshalBinary converts the Header into a sequence of bytes.  Observe that we
// don't use GobEncoding here to avoid being tied to that encoding scheme.
func (p *Header) MarshalBinary() ([]byte, error) {
	var (
		buffer     bytes.Buffer
		majorBytes [2]byte
		minorBytes [2]byte
		metaLength [4]byte
	)
	// Marshall version numbers
	binary.BigEndian.PutUint16(majorBytes[:], p.MajorVersion)
	binary.BigEndian.PutUint16(minorBytes[:], p.MinorVersion)
	binary.BigEndian.PutUint32(metaLength[:], uint32(len(p.MetaData)))
	// Write identifier
	buffer.Write(p.Identifier[:])
	// Write major version
	buffer.Write(majorBytes[:])
	// Write minor version
	buffer.Write(minorBytes[:])
	// Write metadata length
	buffer.Write(metaLength[:])
	// Write metadata itself
	buffer.Write(p.MetaData)
	// Done
	return buffer.Bytes(), nil
}

// UnmarshalBinary initialises this Header from a given buffer.  This should
// match exactly the encoding above.
func (p *Header) UnmarshalBinary(buffer *bytes.Buffer) error {
	var (
		majorBytes      [2]byte
		minorBytes      [2]byte
		metaLengthBytes [4]byte
	)
	// Read identifier, versions and metadata length.
	for _, field := range [][]byte{p.Identifier[:], majorBytes[:], minorBytes[:], metaLengthBytes[:]} {
		if _, err := io.ReadFull(buffer, field); err != nil {
			return fmt.Errorf("%w: truncated header", ErrMalformedRecord)
		}
	}
	// Make space for the metadata
	var (
		metaLength = binary.BigEndian.Uint32(metaLengthBytes[:])
		metaBytes  []byte
	)
	//
	if uint64(metaLength) > uint64(buffer.Len()) {
		return fmt.Errorf("%w: truncated metadata", ErrMalformedRecord)
	}
	//
	metaBytes = make([]byte, metaLength)
	// Read metadata itself
	if _, err := io.ReadFull(buffer, metaBytes); err != nil {
		return fmt.Errorf("%w: truncated metadata", ErrMalformedRecord)
	}
	// Finally assign everything over
	p.MajorVersion = binary.BigEndian.Uint16(majorBytes[:])
	p.MinorVersion = binary.BigEndian.Uint16(minorBytes[:])
	p.MetaData = metaBytes
	// Done
	return nil
}

// IsCompatible determines whether a given record is compatible with this
// version of the format.
func (p *Header) IsCompatible() bool {
	return p.Identifier == IRRECORD &&
		p.MajorVersion == RECORD_MAJOR_VERSION &&
		p.MinorVersion <= RECORD_MINOR_VERSION
}

// IsRecordFile checks whether the given data begins with the expected
// "irrecord" identifier.
func IsRecordFile(data []byte) bool {
	return len(data) >= len(IRRECORD) && bytes.Equal(data[:len(IRRECORD)], IRRECORD[:])
}

// ============================================================================
// Encoding / Decoding
// ============================================================================

// Encode converts a record into a sequence of bytes: the header, followed by
// the length of the payload and then the (gob encoded) payload itself.
func Encode(header Header, record *Record) ([]byte, error) {
	var (
		buffer  bytes.Buffer
		payload bytes.Buffer
		length  [binary.MaxVarintLen64]byte
	)
	// Marshal header
	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	// Encode payload
	if err := gob.NewEncoder(&payload).Encode(record); err != nil {
		return nil, err
	}
	//
	n := binary.PutUvarint(length[:], uint64(payload.Len()))
	//
	buffer.Write(headerBytes)
	buffer.Write(length[:n])
	buffer.Write(payload.Bytes())
	// Done
	return buffer.Bytes(), nil
}

// Decode a record previously produced by Encode, rejecting those nested deeper
// than the given limit.  A limit of zero selects the default limit.
func Decode(data []byte, limit uint) (*Header, *Record, error) {
	var (
		header Header
		record Record
		buffer = bytes.NewBuffer(data)
	)
	//
	if limit == 0 {
		limit = DefaultMaxNestingDepth
	}
	// Read header
	if err := header.UnmarshalBinary(buffer); err != nil {
		return nil, nil, err
	} else if !header.IsCompatible() {
		return nil, nil, fmt.Errorf("%w: was v%d.%d, but expected v%d.%d", ErrIncompatibleRecord,
			header.MajorVersion, header.MinorVersion, RECORD_MAJOR_VERSION, RECORD_MINOR_VERSION)
	}
	// Read payload length
	length, err := binary.ReadUvarint(buffer)
	if err != nil || length != uint64(buffer.Len()) {
		return nil, nil, fmt.Errorf("%w: payload length mismatch", ErrMalformedRecord)
	}
	// Decode payload
	if err := gob.NewDecoder(buffer).Decode(&record); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMalformedRecord, err.Error())
	}
	// Check nesting
	if depth := record.Depth(); depth > limit {
		return nil, nil, fmt.Errorf("%w: depth %d exceeds %d", ErrNestingLimit, depth, limit)
	}
	//
	return &header, &record, nil
}
