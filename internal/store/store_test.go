package store

import "testing"

func TestTrimExcess(t *testing.T) {
	cases := []struct {
		name   string
		length int
		max    int
		want   int
	}{
		{"dentro del limite", 4, 10, 0},
		{"exacto en el limite", 10, 10, 0},
		{"excedente par", 10, 4, 6},
		{"excedente impar cae el par completo", 10, 5, 6},
		{"limite cero vacia todo", 6, 0, 6},
		{"limite negativo igual que cero", 6, -3, 6},
		{"redondeo no pasa del largo", 3, 0, 3},
		{"historial vacio", 0, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trimExcess(tc.length, tc.max); got != tc.want {
				t.Fatalf("trimExcess(%d, %d) = %d, want %d", tc.length, tc.max, got, tc.want)
			}
		})
	}
}
