/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import "sort"

type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttrsFromMap returns the attributes sorted by name.
func AttrsFromMap(m map[string]string) []Attr {
	out := make([]Attr, 0, len(m))
	for k, v := range m {
		out = append(out, Attr{Name: k, Value: v})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

func AttrsToMap(attrs []Attr) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Name] = a.Value
	}

	return out
}
