package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectItemLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"canvas"},
			want: []string{"canvas"},
		},
		{
			name: "direct item id first token",
			in:   []string{"canvas", "0001"},
			want: []string{"canvas", "show", "0001"},
		},
		{
			name: "direct item id after value flag",
			in:   []string{"canvas", "--dir", "./tmp-canvas", "0012"},
			want: []string{"canvas", "--dir", "./tmp-canvas", "show", "0012"},
		},
		{
			name: "direct item id after equals flag",
			in:   []string{"canvas", "--dir=./tmp-canvas", "0012"},
			want: []string{"canvas", "--dir=./tmp-canvas", "show", "0012"},
		},
		{
			name: "direct item id after bool flag",
			in:   []string{"canvas", "--pretty", "0003"},
			want: []string{"canvas", "--pretty", "show", "0003"},
		},
		{
			name: "direct item id after double dash",
			in:   []string{"canvas", "--dir", "./tmp-canvas", "--", "0003"},
			want: []string{"canvas", "--dir", "./tmp-canvas", "--", "show", "0003"},
		},
		{
			name: "ids past 9999 still match",
			in:   []string{"canvas", "12345"},
			want: []string{"canvas", "show", "12345"},
		},
		{
			name: "short number not rewritten",
			in:   []string{"canvas", "12"},
			want: []string{"canvas", "12"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"canvas", "show", "0001"},
			want: []string{"canvas", "show", "0001"},
		},
		{
			name: "exec args not rewritten",
			in:   []string{"canvas", "exec", "deleteItem", "itemId=0001"},
			want: []string{"canvas", "exec", "deleteItem", "itemId=0001"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectItemLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
