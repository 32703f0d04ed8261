// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package frame

import "errors"

// ErrFrameTooLarge is returned by Accumulator.Next when a frame's declared
// payload length exceeds the accumulator's configured maximum.
var ErrFrameTooLarge = errors.New("frame: payload exceeds frame_max")
