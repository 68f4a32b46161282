// Package nonodo embeds a nonodo node in a Go program.
//
//	node := nonodo.New(nonodo.WithArgs("--http-port", "8080"))
//	if err := node.Start(ctx); err != nil {
//		return err
//	}
//	defer node.Stop()
//
// Start provisions the executable exactly like the command line launcher and
// runs it in the background; Stop interrupts it.
package nonodo
