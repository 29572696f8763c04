package utils

import "fmt"

var (
	vekterK1 = [9]int{3, 7, 6, 1, 8, 9, 4, 5, 2}
	vekterK2 = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
)

// ValidateFodselsnummer checks that the identity number has eleven
// digits and valid mod-11 control digits. D-numbers (first digit + 4)
// pass the same checksum and are accepted.
func ValidateFodselsnummer(fnr string) error {
	if len(fnr) != 11 {
		return fmt.Errorf("fødselsnummer må ha 11 siffer, fikk %d", len(fnr))
	}

	var siffer [11]int
	for i, r := range fnr {
		if r < '0' || r > '9' {
			return fmt.Errorf("fødselsnummer inneholder noe annet enn siffer")
		}
		siffer[i] = int(r - '0')
	}

	var sum int
	for i, vekt := range vekterK1 {
		sum += siffer[i] * vekt
	}
	if k1 := (11 - sum%11) % 11; k1 == 10 || k1 != siffer[9] {
		return fmt.Errorf("ugyldig første kontrollsiffer i fødselsnummer")
	}

	sum = 0
	for i, vekt := range vekterK2 {
		sum += siffer[i] * vekt
	}
	if k2 := (11 - sum%11) % 11; k2 == 10 || k2 != siffer[10] {
		return fmt.Errorf("ugyldig andre kontrollsiffer i fødselsnummer")
	}

	return nil
}
