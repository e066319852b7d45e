package framelai

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Hello, Robin!", true},
		{"I", true},
		{"i", true},
		{"  Go  ", true},
		{"x", false},
		{"", false},
		{"42", false},
		{"3.14, 2", false},
		{"...!?", false},
		{"— ★ —", false},
		{"안녕하세요", false},
		{"Robin 로빈", false},
		{"25°C", false},
		{"100°c", false},
		{"a*", false},
		{"Q*", false},
		{"A+", false},
		{"b-", false},
		{"C", false},
		{"f+", false},
		{"Z+", true},
		{"e-", true},
		{"9pm", true},
		{"1st", true},
		{"15kg", true},
		{"日本語", false},
		{"Go to the forest (1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_RejectsAnyHangul(t *testing.T) {
	samples := []string{"Hello 안", "ㄱ", "English with 한국어 inside", "OK 가나다 123"}
	for _, s := range samples {
		if Classify(s) {
			t.Errorf("Classify(%q) should be false for text containing Hangul", s)
		}
	}
}

func TestClassify_GradeLettersIncludingA(t *testing.T) {
	// "a" survives the length check but still reads as a grade letter.
	for _, s := range []string{"a", "A", "a+", "D-", "F"} {
		if Classify(s) {
			t.Errorf("Classify(%q) = true, want false", s)
		}
	}
}
