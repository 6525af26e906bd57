package docbr

import "testing"

func TestIsValidCPF(t *testing.T) {
	tests := []struct {
		name  string
		cpf   string
		valid bool
	}{
		{"Valid CPF", "52998224725", true},
		{"Invalid check digit", "52998224726", false},
		{"All same digits", "11111111111", false},
		{"Too short", "5299822472", false},
		{"Too long", "529982247251", false},
		{"Formatted input rejected", "529.982.247-25", false},
		{"Non-numeric", "5299822472a", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCPF(tt.cpf); got != tt.valid {
				t.Errorf("IsValidCPF(%q) = %v, want %v", tt.cpf, got, tt.valid)
			}
		})
	}
}

func TestIsValidCNPJ(t *testing.T) {
	tests := []struct {
		name  string
		cnpj  string
		valid bool
	}{
		{"Valid CNPJ", "11222333000181", true},
		{"Invalid check digit", "11222333000182", false},
		{"All same digits", "11111111111111", false},
		{"CPF length", "52998224725", false},
		{"Formatted input rejected", "11.222.333/0001-81", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCNPJ(tt.cnpj); got != tt.valid {
				t.Errorf("IsValidCNPJ(%q) = %v, want %v", tt.cnpj, got, tt.valid)
			}
		})
	}
}

func TestGeneratedDocumentsAreValid(t *testing.T) {
	for i := 0; i < 200; i++ {
		cpf := GenerateCPF()
		if len(cpf) != 11 {
			t.Fatalf("GenerateCPF() returned %q, want 11 digits", cpf)
		}
		if !IsValidCPF(cpf) {
			t.Fatalf("GenerateCPF() returned invalid CPF %q", cpf)
		}

		cnpj := GenerateCNPJ()
		if len(cnpj) != 14 {
			t.Fatalf("GenerateCNPJ() returned %q, want 14 digits", cnpj)
		}
		if !IsValidCNPJ(cnpj) {
			t.Fatalf("GenerateCNPJ() returned invalid CNPJ %q", cnpj)
		}
	}
}
