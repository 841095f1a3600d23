package annotations

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    string
		changed int
	}{
		{
			name:    "canonical already",
			src:     `function f(a /*: Array<Number | String> */) /*: Map<String, Number> */ {}`,
			want:    `function f(a /*: Array<Number | String> */) /*: Map<String, Number> */ {}`,
			changed: 0,
		},
		{
			name:    "spacing",
			src:     `function f(a /*:Array<Number|String>*/, b /*: Map<String,Number> */) /*:  Foo */ {}`,
			want:    `function f(a /*: Array<Number | String> */, b /*: Map<String, Number> */) /*: Foo */ {}`,
			changed: 3,
		},
		{
			name:    "tuples",
			src:     `const g = (p /*:[Number,String]*/) => p;`,
			want:    `const g = (p /*: [Number, String] */) => p;`,
			changed: 1,
		},
		{
			name:    "malformed kept",
			src:     `function f(a /*:Array<*/, b /*:Number*/) {}`,
			want:    `function f(a /*:Array<*/, b /*: Number */) {}`,
			changed: 1,
		},
		{
			name:    "strings untouched",
			src:     `const s = "/*:Number*/";`,
			want:    `const s = "/*:Number*/";`,
			changed: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, changed := Format([]byte(tc.src))
			if string(out) != tc.want {
				t.Errorf("Format() =\n%s\nwant\n%s", out, tc.want)
			}
			if changed != tc.changed {
				t.Errorf("changed = %d, want %d", changed, tc.changed)
			}
		})
	}
}
