// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hsindex

import "strconv"

type chapterRange struct {
	from, to int
	certs    []string
}

var certificateRanges = []chapterRange{
	{1, 24, []string{"FDA", "HACCP", "Halal", "Organic"}},
	{28, 40, []string{"REACH", "ISO 14001", "RoHS"}},
	{50, 63, []string{"OEKO-TEX", "GOTS", "ISO 14001"}},
	{72, 83, []string{"ISO 9001", "ASTM", "DIN"}},
	{84, 85, []string{"CE", "RoHS", "UL", "ISO 9001"}},
	{90, 92, []string{"CE (Medical Devices)", "FDA (Medical Devices)", "ISO 13485"}},
}

var defaultCertificates = []string{"ISO 9001", "ISO 14001"}

// CertificatesFor suggests certificates for an HS code from its chapter.
// Codes shorter than two digits get no suggestions.
func CertificatesFor(code string) []string {
	if len(code) < 2 {
		return []string{}
	}
	chapter, err := strconv.Atoi(code[:2])
	if err != nil {
		return append([]string(nil), defaultCertificates...)
	}
	for _, r := range certificateRanges {
		if chapter >= r.from && chapter <= r.to {
			return append([]string(nil), r.certs...)
		}
	}
	return append([]string(nil), defaultCertificates...)
}
