// Package credential resolves the access key pair, the API endpoint and
// the polling settings used by the SDK.
//
// Values come from the environment first. Missing values are filled in
// from dotfiles under $HOME/.furiosa:
//
//	config       extra settings, always read when present
//	credential   the access key pair, read only when a key is missing
//
// Both files use the dotenv format:
//
//	FURIOSA_ACCESS_KEY_ID=XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX
//	FURIOSA_SECRET_ACCESS_KEY=YYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYY
//
// A dotfile never overrides a variable that is already set, and a
// missing dotfile is not an error.
package credential
