// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package progresslog provides periodic logging for mining progress.

Tests are included to ensure proper functionality.

## Feature Overview

- Maintains cumulative totals between each logging interval
  - Total number of hashes
  - Total number of block templates worked on
  - Total number of blocks found
  - Total number of stale or rejected blocks
- Logs all cumulative data every 10 seconds by default
- Formats hash rates with human readable units
*/
package progresslog
