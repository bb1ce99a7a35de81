package cli

var ErrorKind = errorKind
