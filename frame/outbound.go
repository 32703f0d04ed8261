// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package frame

import (
	"fmt"

	"github.com/streamwire/rstream/commands"
	"github.com/streamwire/rstream/wire"
)

// Encode serializes c into buf as a complete outbound frame: a u32 length
// prefix followed by c's opcode/version/correlation/body bytes. buf is
// reset and reused, so callers typically pass a buffer rented from a pool
// sized to commands.SizeNeeded(c)+LengthPrefixSize.
func Encode(buf []byte, c commands.Command) ([]byte, error) {
	payload := commands.SizeNeeded(c)
	w := wire.NewWriter(buf)
	w.WriteUint32(uint32(payload))
	n, err := commands.Write(w, c)
	if err != nil {
		return nil, fmt.Errorf("frame: encode opcode %d: %w", c.Key(), err)
	}
	if n != payload {
		return nil, fmt.Errorf("frame: opcode %d wrote %d bytes, expected %d", c.Key(), n, payload)
	}
	return w.Bytes(), nil
}
