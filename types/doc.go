// Copyright (c) PixelAgent Authors.
// Licensed under the MIT License.

/*
Package types holds the value types shared by every pixelagent package.

It depends on no other package of this module so that vision, navigation,
scheduler and client can all exchange Region, Point and Range values
without import cycles.

# Core types

  - Region            - immutable (left, top, width, height) in display units
  - Point             - display or map-relative coordinate
  - Range             - inclusive duration interval for randomized sleeps
  - Error / ErrorCode - structured error kinds (OperationFailed,
    Configuration, CaptureFailed, ...) with IsFatal / IsErrorCode helpers
*/
package types
