package encoding

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantText string
		wantEnc  string
	}{
		{
			name:     "plain ASCII",
			data:     []byte("Wyplata gotowki"),
			wantText: "Wyplata gotowki",
			wantEnc:  EncUTF8,
		},
		{
			name:     "valid UTF-8 with Polish diacritics",
			data:     []byte("Zapłata za fakturę"),
			wantText: "Zapłata za fakturę",
			wantEnc:  EncUTF8,
		},
		{
			name:     "UTF-8 BOM is stripped",
			data:     append([]byte{0xEF, 0xBB, 0xBF}, []byte("Opis;Kwota")...),
			wantText: "Opis;Kwota",
			wantEnc:  EncUTF8BOM,
		},
		{
			name:     "UTF-16 LE with BOM",
			data:     []byte{0xFF, 0xFE, 0x41, 0x00, 0x62, 0x00},
			wantText: "Ab",
			wantEnc:  EncUTF16LE,
		},
		{
			name:     "UTF-16 BE with BOM",
			data:     []byte{0xFE, 0xFF, 0x00, 0x41, 0x00, 0x62},
			wantText: "Ab",
			wantEnc:  EncUTF16BE,
		},
		{
			// "łódź" in Windows-1250 is not valid UTF-8.
			name:     "Windows-1250 fallback",
			data:     []byte{0xB3, 0xF3, 'd', 0x9F},
			wantText: "łódź",
			wantEnc:  EncWindows1250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc := Decode(tt.data)
			if text != tt.wantText {
				t.Errorf("Decode() text = %q, want %q", text, tt.wantText)
			}
			if enc != tt.wantEnc {
				t.Errorf("Decode() encoding = %q, want %q", enc, tt.wantEnc)
			}
		})
	}
}

func TestDecodeISO88592Fallback(t *testing.T) {
	// 0x81 has no assignment in Windows-1250, so the cp1250 attempt yields a
	// replacement character and the decoder moves on to ISO-8859-2.
	data := []byte{'a', 0x81, 'b'}
	_, enc := Decode(data)
	if enc != EncISO88592 {
		t.Errorf("Decode() encoding = %q, want %q", enc, EncISO88592)
	}
}

func TestDecodeDeterministic(t *testing.T) {
	data := []byte{0xB3, 0xF3, 'd', 0x9F, ';', '1', '0', '0'}
	firstText, firstEnc := Decode(data)
	for i := 0; i < 10; i++ {
		text, enc := Decode(data)
		if text != firstText || enc != firstEnc {
			t.Fatalf("Decode() not deterministic: got (%q, %q), want (%q, %q)", text, enc, firstText, firstEnc)
		}
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	text, enc := Decode(nil)
	if text != "" {
		t.Errorf("Decode(nil) text = %q, want empty", text)
	}
	if enc != EncUTF8 {
		t.Errorf("Decode(nil) encoding = %q, want %q", enc, EncUTF8)
	}
}
