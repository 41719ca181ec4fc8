// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package leakscan

import (
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// tagCollector gathers every EXIF tag during a walk.
type tagCollector struct {
	tags map[string]string
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag != nil {
		c.tags[string(name)] = strings.Trim(tag.String(), `"`)
	}
	return nil
}

// scanImage checks image metadata for authorship and location tags.
// Screenshots and exports typically carry no EXIF at all; an image
// without decodable EXIF is clean, not an error.
func scanImage(path string) ([]Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, nil
	}

	collector := &tagCollector{tags: make(map[string]string)}
	x.Walk(collector)

	_, _, gpsErr := x.LatLong()
	return exifTagFindings(path, collector.tags, gpsErr == nil), nil
}

// identifyingTags maps EXIF tag names to finding details and
// confidences. Artist and XPAuthor name the person behind the camera;
// Copyright often does too but also carries organization boilerplate.
var identifyingTags = []struct {
	tag        string
	detail     string
	confidence int
}{
	{"Artist", "EXIF Artist tag", 80},
	{"XPAuthor", "EXIF XPAuthor tag", 80},
	{"Copyright", "EXIF Copyright tag", 60},
}

func exifTagFindings(path string, tags map[string]string, hasGPS bool) []Finding {
	var findings []Finding
	for _, it := range identifyingTags {
		if v := strings.TrimSpace(tags[it.tag]); v != "" {
			findings = append(findings,
				newFinding(path, 0, KindMetadata, it.detail, v, it.confidence))
		}
	}
	if hasGPS {
		// The coordinates themselves never enter the report.
		findings = append(findings,
			newFinding(path, 0, KindMetadata, "GPS coordinates present", "GPS", 85))
	}
	return findings
}
