package browser

import "testing"

func TestParseDetailText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantViews int
		wantDate  string
	}{
		{
			name:      "both fields present",
			text:      "벤츠 GLE450 쿠페\n조회수 1,234\n최초등록일 2024/01/15 기준",
			wantViews: 1234,
			wantDate:  "2024/01/15",
		},
		{
			name:      "views with colon",
			text:      "조회: 42",
			wantViews: 42,
		},
		{
			name:     "registration only",
			text:     "최초등록일: 2025/12/01",
			wantDate: "2025/12/01",
		},
		{
			name: "neither field",
			text: "판매자 직거래 차량입니다",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := parseDetailText(tt.text)
			if d.Views != tt.wantViews {
				t.Errorf("views = %d, want %d", d.Views, tt.wantViews)
			}
			if d.RegistrationDate != tt.wantDate {
				t.Errorf("registration date = %q, want %q", d.RegistrationDate, tt.wantDate)
			}
		})
	}
}
