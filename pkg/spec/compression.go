/*
Copyright 2025 KineticFire Labs

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package spec

import (
	"fmt"
	"strings"
)

// Compression enumerates the archive formats an image save step
// can produce.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
	CompressionXz    Compression = "xz"
	CompressionZip   Compression = "zip"
)

var compressionExtensions = map[Compression]string{
	CompressionNone:  "tar",
	CompressionGzip:  "tar.gz",
	CompressionBzip2: "tar.bz2",
	CompressionXz:    "tar.xz",
	CompressionZip:   "zip",
}

// ParseCompression resolves a string to a known compression kind.
// An empty string means no compression.
func ParseCompression(s string) (Compression, error) {
	if s == "" {
		return CompressionNone, nil
	}
	c := Compression(strings.ToLower(s))
	if _, ok := compressionExtensions[c]; !ok {
		return "", fmt.Errorf("unknown compression kind %q", s)
	}
	return c, nil
}

// Extension returns the canonical file extension for the
// compression kind, without a leading dot.
func (c Compression) Extension() string {
	if ext, ok := compressionExtensions[c]; ok {
		return ext
	}
	return compressionExtensions[CompressionNone]
}
