// Package objective provides the built-in objectives a sweep can optimize.
//
//   - polynomial: (max_val - min_val) ^ exponent + offset, read from the
//     merged configuration
//   - exec: runs an external command with the configuration as JSON on
//     stdin and parses the last line of stdout
//   - constant: returns a fixed value, for dry runs
package objective
