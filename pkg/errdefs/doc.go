// Package errdefs defines the error taxonomy shared by every chacrab
// component. All failures surface as one of the sentinels here (possibly
// wrapped); only the CLI maps them to user-friendly sentences.
package errdefs
