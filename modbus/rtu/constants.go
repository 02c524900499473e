// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// MinSize is address, function code and CRC.
	MinSize = 4
	MaxSize = 256

	// HeaderSize covers address through the byte count of a write multiple request.
	HeaderSize = 7
)
