package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/docgo"
)

func (cli *CLI) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create [collection]",
		Short: "Create an empty collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cli.viperInst.Set("collection", args[0])
			}
			name, err := cli.collection()
			if err != nil {
				return err
			}
			cat, err := cli.catalog()
			if err != nil {
				return err
			}
			path := cli.viperInst.GetString("path")
			if err := cat.CreateCollection(cmd.Context(), name, path); err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "created collection %s in %s\n", name, path)
			return nil
		},
	}
}

func (cli *CLI) collectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List the collections under --path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := cli.catalog()
			if err != nil {
				return err
			}
			names, err := cat.Collections(cli.viperInst.GetString("path"))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cli.out, name)
			}
			return nil
		},
	}
}

func (cli *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "info",
		Aliases: []string{"open"},
		Short:   "Open a collection, complete interrupted replaces and show a summary",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.printer()
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				count, err := s.Count(cmd.Context(), nil)
				if err != nil {
					return err
				}
				fields, err := s.FieldNames(cmd.Context())
				if err != nil {
					return err
				}
				name, _ := cli.collection()
				return p.print(map[string]any{
					"collection": name,
					"documents":  count,
					"fields":     fields,
					"version":    s.Version(),
				})
			})
		},
	}
}

func (cli *CLI) insertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "insert [file]",
		Short: "Insert documents read from a YAML or JSON file (default stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(cli.in, firstArg(args))
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				for i, doc := range docs {
					if err := s.Insert(cmd.Context(), doc); err != nil {
						return fmt.Errorf("document %d: %w", i, err)
					}
				}
				fmt.Fprintf(cli.out, "inserted %d\n", len(docs))
				return nil
			})
		},
	}
}

func (cli *CLI) saveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "save [file]",
		Aliases: []string{"replace"},
		Short:   "Replace documents by id with documents read from a file (default stdin)",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(cli.in, firstArg(args))
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				for i, doc := range docs {
					if err := s.Replace(cmd.Context(), doc); err != nil {
						return fmt.Errorf("document %d: %w", i, err)
					}
				}
				fmt.Fprintf(cli.out, "saved %d\n", len(docs))
				return nil
			})
		},
	}
}

func (cli *CLI) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the document with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.printer()
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				doc, ok, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("document %q not found", args[0])
				}
				return p.print(doc.ToMap())
			})
		},
	}
}

// queryFromFlags builds a Narrower from --where, or a QueryString from the
// positional arguments.
func queryFromFlags(where []string, args []string) (docgo.Query, error) {
	switch {
	case len(where) > 0 && len(args) > 0:
		return nil, fmt.Errorf("use either --where or a query string, not both")
	case len(where) > 0:
		return parseWhere(where)
	case len(args) > 0:
		return docgo.QueryString(strings.Join(args, " ")), nil
	default:
		return nil, nil
	}
}

func (cli *CLI) findCommand() *cobra.Command {
	var (
		where []string
		one   bool
	)
	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Find documents by exact fields (--where) or by a query string",
		Long: `Find documents.

With --where the documents matching every field=value pair exactly are
returned in insertion order. Otherwise the arguments form a query string:

  docgo find 'city:berlin +tags:admin -name:bob'
  docgo find '"new york" OR boston'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryFromFlags(where, args)
			if err != nil {
				return err
			}
			p, err := cli.printer()
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				if q == nil {
					docs, err := s.All(cmd.Context())
					if err != nil {
						return err
					}
					return p.documents(docs)
				}
				if one {
					doc, ok, err := s.FindOne(cmd.Context(), q)
					if err != nil {
						return err
					}
					if !ok {
						return p.print(nil)
					}
					return p.print(doc.ToMap())
				}
				docs, err := s.Find(cmd.Context(), q)
				if err != nil {
					return err
				}
				return p.documents(docs)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Exact match field=value (repeatable)")
	cmd.Flags().BoolVar(&one, "one", false, "Print only the first match")
	return cmd
}

func (cli *CLI) countCommand() *cobra.Command {
	var where []string
	cmd := &cobra.Command{
		Use:   "count [query]",
		Short: "Count documents, optionally matching --where or a query string",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryFromFlags(where, args)
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				n, err := s.Count(cmd.Context(), q)
				if err != nil {
					return err
				}
				fmt.Fprintln(cli.out, n)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Exact match field=value (repeatable)")
	return cmd
}

func (cli *CLI) deleteCommand() *cobra.Command {
	var (
		id    string
		where []string
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete documents by --id or by --where",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == "") == (len(where) == 0) {
				return fmt.Errorf("use exactly one of --id or --where")
			}
			var spec docgo.Narrower
			if len(where) > 0 {
				var err error
				if spec, err = parseWhere(where); err != nil {
					return err
				}
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				var (
					n   int
					err error
				)
				if id != "" {
					n, err = s.DeleteByID(cmd.Context(), id)
				} else {
					n, err = s.DeleteByQuery(cmd.Context(), spec)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cli.out, "deleted %d\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Delete every document with this id")
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Exact match field=value (repeatable)")
	return cmd
}

func (cli *CLI) emptyCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Delete every document of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to empty the collection without --yes")
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				if err := s.EmptyAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cli.out, "emptied")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every document")
	return cmd
}

func (cli *CLI) fieldsCommand() *cobra.Command {
	var ids bool
	cmd := &cobra.Command{
		Use:   "fields [field]",
		Short: "List field names, or the values of one field by document id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.printer()
			if err != nil {
				return err
			}
			return cli.withStore(cmd.Context(), func(s *docgo.Store) error {
				if len(args) == 0 {
					names, err := s.FieldNames(cmd.Context())
					if err != nil {
						return err
					}
					return p.print(names)
				}
				if ids {
					docIDs, err := s.IDsByField(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return p.print(docIDs)
				}
				values, err := s.ValuesByField(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := make(map[string]any, len(values))
				for id, v := range values {
					out[id] = v.Interface()
				}
				return p.print(out)
			})
		},
	}
	cmd.Flags().BoolVar(&ids, "ids", false, "Print only the ids of documents carrying the field")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
