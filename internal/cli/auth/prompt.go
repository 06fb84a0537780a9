package auth

import (
	"github.com/charmbracelet/huh"
)

// prompt asks for a value on the terminal. Tests replace it.
var prompt = func(title string, secret bool) (string, error) {
	var value string
	input := huh.NewInput().Title(title).Value(&value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).WithTheme(huh.ThemeDracula()).Run(); err != nil {
		return "", err
	}
	return value, nil
}

func ask(value *string, title string, secret bool) error {
	if *value != "" {
		return nil
	}
	v, err := prompt(title, secret)
	if err != nil {
		return err
	}
	*value = v
	return nil
}
